package repository

import (
	"context"

	"github.com/google/uuid"
)

// ConfirmationRepository persists which stores the user has explicitly
// accepted at least once. It seeds the orchestrator's ever-confirmed set at
// session start; writes are fire-and-forget from the caller's perspective.
type ConfirmationRepository interface {
	// RecordConfirmation durably records that the user confirmed the store.
	// Recording the same store twice is a no-op.
	RecordConfirmation(ctx context.Context, storeID uuid.UUID) error

	// LoadConfirmedStoreIDs returns every store id the user has ever confirmed.
	LoadConfirmedStoreIDs(ctx context.Context) ([]uuid.UUID, error)
}
