package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fieldkit/locate-service/internal/api/dto"
	"github.com/fieldkit/locate-service/internal/auth"
	"github.com/fieldkit/locate-service/internal/blob"
	"github.com/fieldkit/locate-service/internal/chat"
	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/gateway"
	apperrors "github.com/fieldkit/locate-service/pkg/util/errorutil"
)

// MessagesHandler exposes a ticket's chat thread: one-shot reads, sends,
// attachment uploads and a live SSE stream over the synchronizer.
type MessagesHandler struct {
	gateway  *gateway.Gateway
	chat     *chat.Synchronizer
	uploader blob.Uploader
	logger   *zap.Logger
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(gw *gateway.Gateway, sync *chat.Synchronizer, uploader blob.Uploader, logger *zap.Logger) *MessagesHandler {
	return &MessagesHandler{gateway: gw, chat: sync, uploader: uploader, logger: logger}
}

// ListMessages GET /tickets/:id/messages.
func (h *MessagesHandler) ListMessages(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	msgs, err := h.gateway.MessagesForTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponses(msgs)})
}

// SendMessage POST /tickets/:id/messages.
func (h *MessagesHandler) SendMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("content required", nil)
	}

	role := senderRoleFor(principal.User)
	msg, err := h.chat.Send(c.UserContext(), c.Params("id"), principal.UID, role, req.Content, req.AttachmentURL)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(*msg)})
}

// UploadAttachment POST /tickets/:id/attachments. Stores the file and
// returns the URL the client should send with its next message.
func (h *MessagesHandler) UploadAttachment(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file required", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	url, err := h.uploader.Upload(c.UserContext(), c.Params("id"), filepath.Ext(fileHeader.Filename), data)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AttachmentResponse{URL: url}})
}

// StreamThread GET /tickets/:id/messages/stream. Server-sent events: one
// event per snapshot, each carrying the full ordered thread. Disconnecting
// releases the live subscription.
func (h *MessagesHandler) StreamThread(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	handle, err := h.chat.Subscribe(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	sync := h.chat
	logger := h.logger
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer sync.Unsubscribe(handle)
		for msgs := range handle.Updates() {
			payload, err := json.Marshal(messageResponses(msgs))
			if err != nil {
				logger.Warn("thread stream encode failed", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

func senderRoleFor(user *domain.User) domain.SenderRole {
	if user == nil {
		return domain.SenderRoleSystem
	}
	switch user.Role {
	case domain.UserRoleLocator, domain.UserRoleAdmin:
		return domain.SenderRoleLocator
	default:
		return domain.SenderRoleCustomer
	}
}

func messageResponses(msgs []domain.Message) []dto.MessageResponse {
	items := make([]dto.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, messageResponse(m))
	}
	return items
}

func messageResponse(m domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:            m.ID,
		TicketID:      m.TicketID,
		SenderID:      m.SenderID,
		SenderRole:    m.SenderRole,
		Content:       m.Content,
		CreatedAt:     m.CreatedAt,
		IsRead:        m.IsRead,
		AttachmentURL: m.AttachmentURL,
	}
}
