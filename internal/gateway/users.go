package gateway

import (
	"context"

	"github.com/fieldkit/locate-service/internal/domain"
	"github.com/fieldkit/locate-service/internal/store"
)

// User document field names as stored under the users collection. fullName
// is persisted alongside first/last because tickets join on the formatted
// string and the intake process queries it directly.
const (
	fieldEmail       = "email"
	fieldFirstName   = "firstName"
	fieldLastName    = "lastName"
	fieldFullName    = "fullName"
	fieldRole        = "role"
	fieldPhone       = "phone"
	fieldIsActive    = "isActive"
	fieldDeviceToken = "deviceToken"
)

// GetUser fetches and decodes one user profile by auth uid.
func (g *Gateway) GetUser(ctx context.Context, id string) (*domain.User, error) {
	doc, err := g.store.Get(ctx, store.CollectionUsers, id)
	if err != nil {
		return nil, err
	}
	user := decodeUser(doc)
	return &user, nil
}

// PutUser writes the full profile document.
func (g *Gateway) PutUser(ctx context.Context, u domain.User) error {
	return g.store.Set(ctx, store.CollectionUsers, u.ID, encodeUser(u), false)
}

// UpdateUserProfile merge-writes the editable profile fields, rederiving
// the formatted display name. Nil optional fields are omitted from the
// write, so a previously stored phone or device token is left in place
// rather than cleared; clearing would need a dedicated field-delete path.
func (g *Gateway) UpdateUserProfile(ctx context.Context, u domain.User) error {
	fields := map[string]any{
		fieldEmail:     u.Email,
		fieldFirstName: u.FirstName,
		fieldLastName:  u.LastName,
		fieldFullName:  u.FullName(),
		fieldRole:      string(u.Role),
		fieldIsActive:  u.IsActive,
	}
	if u.Phone != nil {
		fields[fieldPhone] = *u.Phone
	}
	if u.DeviceToken != nil {
		fields[fieldDeviceToken] = *u.DeviceToken
	}
	return g.store.Set(ctx, store.CollectionUsers, u.ID, fields, true)
}

// SetDeviceToken merge-writes the push registration token only.
func (g *Gateway) SetDeviceToken(ctx context.Context, id, token string) error {
	return g.store.Set(ctx, store.CollectionUsers, id, map[string]any{fieldDeviceToken: token}, true)
}

func encodeUser(u domain.User) map[string]any {
	fields := map[string]any{
		fieldEmail:     u.Email,
		fieldFirstName: u.FirstName,
		fieldLastName:  u.LastName,
		fieldFullName:  u.FullName(),
		fieldRole:      string(u.Role),
		fieldIsActive:  u.IsActive,
		fieldCreatedAt: u.CreatedAt,
	}
	if u.Phone != nil {
		fields[fieldPhone] = *u.Phone
	}
	if u.DeviceToken != nil {
		fields[fieldDeviceToken] = *u.DeviceToken
	}
	return fields
}

// decodeUser is permissive: profile documents predate the decode contract
// and a partially-filled profile must still resolve for ticket lookups. An
// unknown role falls back to customer.
func decodeUser(doc store.Document) domain.User {
	user := domain.User{ID: doc.ID, IsActive: true, Role: domain.UserRoleCustomer}

	if email, ok := stringValue(doc.Fields[fieldEmail]); ok {
		user.Email = email
	}
	if first, ok := stringValue(doc.Fields[fieldFirstName]); ok {
		user.FirstName = first
	}
	if last, ok := stringValue(doc.Fields[fieldLastName]); ok {
		user.LastName = last
	}
	if roleRaw, ok := stringValue(doc.Fields[fieldRole]); ok {
		if role, err := domain.ParseUserRole(roleRaw); err == nil {
			user.Role = role
		}
	}
	if active, ok := boolValue(doc.Fields[fieldIsActive]); ok {
		user.IsActive = active
	}
	if created, ok := timeValue(doc.Fields[fieldCreatedAt]); ok {
		user.CreatedAt = created
	}
	user.Phone = optionalString(doc.Fields, fieldPhone)
	user.DeviceToken = optionalString(doc.Fields, fieldDeviceToken)
	return user
}
