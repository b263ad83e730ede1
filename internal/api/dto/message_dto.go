package dto

import (
	"time"

	"github.com/fieldkit/locate-service/internal/domain"
)

// MessageResponse is the API shape of a chat message.
type MessageResponse struct {
	ID            string            `json:"id"`
	TicketID      string            `json:"ticket_id"`
	SenderID      string            `json:"sender_id"`
	SenderRole    domain.SenderRole `json:"sender_role"`
	Content       string            `json:"content"`
	CreatedAt     time.Time         `json:"created_at"`
	IsRead        bool              `json:"is_read"`
	AttachmentURL *string           `json:"attachment_url,omitempty"`
}

// SendMessageRequest appends a message to a ticket thread.
type SendMessageRequest struct {
	Content       string  `json:"content"`
	AttachmentURL *string `json:"attachment_url"`
}

// AttachmentResponse reports the stored URL of an upload.
type AttachmentResponse struct {
	URL string `json:"url"`
}
