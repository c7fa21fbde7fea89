package models

import (
	"context"
	"strings"
	"time"
)

// Connection represents one first-degree LinkedIn connection imported from
// the user's connections export.
type Connection struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	ProfileURL  string     `json:"profile_url"`
	ProfileURN  string     `json:"profile_urn,omitempty"`
	Email       string     `json:"email,omitempty"`
	Company     string     `json:"company,omitempty"`
	Position    string     `json:"position,omitempty"`
	Relevant    bool       `json:"relevant"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FullName returns the display name for dashboards and insight payloads.
func (c *Connection) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ProfileText returns the text searched during relevance marking.
func (c *Connection) ProfileText() string {
	return strings.TrimSpace(c.Company + " " + c.Position)
}

// MatchesIdentifier reports whether an external engagement actor identifier
// (profile URN or URL) refers to this connection.
func (c *Connection) MatchesIdentifier(identifier string) bool {
	if identifier == "" {
		return false
	}
	if c.ProfileURN != "" && c.ProfileURN == identifier {
		return true
	}
	return c.ProfileURL != "" && c.ProfileURL == identifier
}

// ConnectionRepository defines operations for imported connections.
type ConnectionRepository interface {
	// Store creates or updates a connection, keyed by profile URL.
	Store(ctx context.Context, conn *Connection) error

	// GetByID retrieves a connection by ID, or nil when absent.
	GetByID(ctx context.Context, id string) (*Connection, error)

	// ListAll returns every known connection.
	ListAll(ctx context.Context) ([]*Connection, error)

	// SetRelevant updates the relevance flag for a connection.
	SetRelevant(ctx context.Context, id string, relevant bool) error

	// Count returns the number of known connections.
	Count(ctx context.Context) (int, error)
}
