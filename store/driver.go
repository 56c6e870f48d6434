package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// Conversation model related methods.
	UpsertConversation(ctx context.Context, upsert *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	// Reservation model related methods.
	CreateReservation(ctx context.Context, create *Reservation) (*Reservation, error)
	ListReservations(ctx context.Context, find *FindReservation) ([]*Reservation, error)
	UpdateReservation(ctx context.Context, update *UpdateReservation) (*Reservation, error)
}
