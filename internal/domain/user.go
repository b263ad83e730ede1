package domain

import (
	"fmt"
	"time"
)

// UserRole separates field locators from office admins and customers.
type UserRole string

const (
	UserRoleLocator  UserRole = "locator"
	UserRoleAdmin    UserRole = "admin"
	UserRoleCustomer UserRole = "customer"
)

// ParseUserRole validates a raw role value from the store.
func ParseUserRole(raw string) (UserRole, error) {
	switch UserRole(raw) {
	case UserRoleLocator, UserRoleAdmin, UserRoleCustomer:
		return UserRole(raw), nil
	}
	return "", fmt.Errorf("unknown user role %q", raw)
}

// User is the profile document for an authenticated identity. The id is the
// opaque uid issued by the auth provider.
type User struct {
	ID          string
	Email       string
	FirstName   string
	LastName    string
	Role        UserRole
	Phone       *string
	IsActive    bool
	DeviceToken *string
	CreatedAt   time.Time
}

// FullName is the "Last, First" display identity. Tickets are joined to
// locators on this formatted string, so it must match the intake sheet
// exactly. Two locators with the same name collide; see the query engine
// tests for the pinned behavior.
func (u User) FullName() string {
	return u.LastName + ", " + u.FirstName
}
