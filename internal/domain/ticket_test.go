package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketStatus(t *testing.T) {
	status, err := ParseTicketStatus("closed")
	require.NoError(t, err)
	assert.Equal(t, TicketStatusClosed, status)

	_, err = ParseTicketStatus("paused")
	require.Error(t, err)
}

func TestIsArchivedBoundary(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	exactly := now.Add(-ArchiveAfter)
	past := now.Add(-ArchiveAfter - time.Second)

	assert.False(t, Ticket{Status: TicketStatusClosed, ClosedAt: &exactly}.IsArchived(now))
	assert.True(t, Ticket{Status: TicketStatusClosed, ClosedAt: &past}.IsArchived(now))
	assert.False(t, Ticket{Status: TicketStatusActive}.IsArchived(now))
}

func TestMessageLessOrdersByTimeThenID(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	earlier := Message{ID: "z", CreatedAt: at}
	later := Message{ID: "a", CreatedAt: at.Add(time.Second)}
	assert.True(t, earlier.Less(later))
	assert.False(t, later.Less(earlier))

	tieA := Message{ID: "a", CreatedAt: at}
	tieB := Message{ID: "b", CreatedAt: at}
	assert.True(t, tieA.Less(tieB))
	assert.False(t, tieB.Less(tieA))
}

func TestUserFullName(t *testing.T) {
	u := User{FirstName: "John", LastName: "Smith"}
	assert.Equal(t, "Smith, John", u.FullName())
}
