package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicket(t *testing.T) {
	tests := []struct {
		name        string
		userID      string
		subject     string
		description string
		wantErr     bool
	}{
		{
			name:        "valid input",
			userID:      "user-1",
			subject:     "Login broken",
			description: "I cannot sign in anymore",
		},
		{
			name:        "subject trimmed before validation",
			userID:      "user-1",
			subject:     "   Login broken   ",
			description: "I cannot sign in anymore",
		},
		{
			name:        "subject too short",
			userID:      "user-1",
			subject:     "Hey",
			description: "I cannot sign in anymore",
			wantErr:     true,
		},
		{
			name:        "subject at lower bound",
			userID:      "user-1",
			subject:     "Help!",
			description: "I cannot sign in anymore",
		},
		{
			name:        "subject at upper bound",
			userID:      "user-1",
			subject:     strings.Repeat("a", 200),
			description: "I cannot sign in anymore",
		},
		{
			name:        "subject above upper bound",
			userID:      "user-1",
			subject:     strings.Repeat("a", 201),
			description: "I cannot sign in anymore",
			wantErr:     true,
		},
		{
			name:        "description too short",
			userID:      "user-1",
			subject:     "Login broken",
			description: "too short",
			wantErr:     true,
		},
		{
			name:        "description at upper bound",
			userID:      "user-1",
			subject:     "Login broken",
			description: strings.Repeat("d", 2000),
		},
		{
			name:        "description above upper bound",
			userID:      "user-1",
			subject:     "Login broken",
			description: strings.Repeat("d", 2001),
			wantErr:     true,
		},
		{
			name:        "missing user id",
			userID:      "",
			subject:     "Login broken",
			description: "I cannot sign in anymore",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := NewTicket(tt.userID, tt.subject, tt.description)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TicketStatusOpen, ticket.Status)
			assert.Equal(t, strings.TrimSpace(tt.subject), ticket.Subject)
			assert.Nil(t, ticket.ResolutionTime)
		})
	}
}

func TestTicketUpdateStatus(t *testing.T) {
	t.Run("rejects unknown status", func(t *testing.T) {
		ticket := openTicket(t)
		err := ticket.UpdateStatus(TicketStatus("archived"))
		require.Error(t, err)
		assert.Equal(t, TicketStatusOpen, ticket.Status)
	})

	t.Run("resolving stamps resolution time", func(t *testing.T) {
		ticket := openTicket(t)
		require.NoError(t, ticket.UpdateStatus(TicketStatusResolved))
		assert.Equal(t, TicketStatusResolved, ticket.Status)
		require.NotNil(t, ticket.ResolutionTime)
	})

	t.Run("closing stamps resolution time", func(t *testing.T) {
		ticket := openTicket(t)
		require.NoError(t, ticket.UpdateStatus(TicketStatusClosed))
		require.NotNil(t, ticket.ResolutionTime)
	})

	t.Run("reopening keeps resolution time", func(t *testing.T) {
		ticket := openTicket(t)
		require.NoError(t, ticket.UpdateStatus(TicketStatusResolved))
		resolvedAt := ticket.ResolutionTime
		require.NotNil(t, resolvedAt)

		require.NoError(t, ticket.UpdateStatus(TicketStatusInProgress))
		assert.Equal(t, TicketStatusInProgress, ticket.Status)
		assert.Equal(t, resolvedAt, ticket.ResolutionTime)
	})
}

func TestTicketAddComment(t *testing.T) {
	t.Run("appends to open ticket", func(t *testing.T) {
		ticket := openTicket(t)
		comment, err := ticket.AddComment("user-1", "any update on this?")
		require.NoError(t, err)
		assert.Equal(t, "any update on this?", comment.Comment)
		assert.Len(t, ticket.Comments, 1)
		assert.Equal(t, TicketStatusOpen, ticket.Status)
	})

	t.Run("rejects empty comment", func(t *testing.T) {
		ticket := openTicket(t)
		_, err := ticket.AddComment("user-1", "   ")
		require.Error(t, err)
		assert.Empty(t, ticket.Comments)
	})

	t.Run("reopens resolved ticket to in_progress", func(t *testing.T) {
		ticket := openTicket(t)
		require.NoError(t, ticket.UpdateStatus(TicketStatusResolved))
		resolvedAt := ticket.ResolutionTime

		_, err := ticket.AddComment("user-1", "it is still broken")
		require.NoError(t, err)
		assert.Equal(t, TicketStatusInProgress, ticket.Status)
		assert.Equal(t, resolvedAt, ticket.ResolutionTime)
	})

	t.Run("rejects comment on closed ticket", func(t *testing.T) {
		ticket := openTicket(t)
		require.NoError(t, ticket.UpdateStatus(TicketStatusClosed))

		_, err := ticket.AddComment("user-1", "please reopen")
		require.Error(t, err)
		assert.Equal(t, TicketStatusClosed, ticket.Status)
		assert.Empty(t, ticket.Comments)
	})
}

func TestTicketAccessPredicates(t *testing.T) {
	ticket := openTicket(t)

	assert.True(t, ticket.CanBeAccessedBy("user-1", RoleCustomer))
	assert.True(t, ticket.CanBeAccessedBy("someone-else", RoleAdmin))
	assert.False(t, ticket.CanBeAccessedBy("someone-else", RoleCustomer))

	assert.True(t, ticket.CanBeUpdatedBy("user-1", RoleCustomer))
	assert.False(t, ticket.CanBeUpdatedBy("someone-else", RoleCustomer))
}

func openTicket(t *testing.T) *Ticket {
	t.Helper()
	ticket, err := NewTicket("user-1", "Login broken", "I cannot sign in anymore")
	require.NoError(t, err)
	return ticket
}
