// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/brokewise/internal/models"
)

// ErrGroupNotFound is returned when no group has the requested ID.
var ErrGroupNotFound = errors.New("group not found")

// Store defines the interface for group and ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateGroup persists a new group with its ledger.
	// The ID, CreatedAt and LastAccessedAt fields are populated by the store
	// when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group and its ledger by ID.
	// Returns ErrGroupNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// LoadLedger retrieves the ledger of a group.
	LoadLedger(ctx context.Context, groupID string) (models.Ledger, error)

	// SaveLedger replaces the participants and expenses of a group in one
	// transaction.
	SaveLedger(ctx context.Context, groupID string, ledger models.Ledger) error

	// UpdateLedger loads the ledger, applies fn and saves the result, all in
	// one transaction. If fn returns an error nothing is written.
	UpdateLedger(ctx context.Context, groupID string, fn func(models.Ledger) (models.Ledger, error)) (models.Ledger, error)

	// TouchGroup records that the group was accessed at the given time.
	TouchGroup(ctx context.Context, groupID string, at time.Time) error

	// DeleteInactiveGroups removes groups not accessed since cutoff and
	// returns how many were removed.
	DeleteInactiveGroups(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
