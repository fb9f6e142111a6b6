package repository

import "context"

// Repository defines the interface for the processed-comment ledger
type Repository interface {
	Exists(ctx context.Context, automationID, commentID string) (bool, error)
	// Insert claims the comment. It reports false, without error, when the
	// pair is already present; the uniqueness check is left to the store.
	Insert(ctx context.Context, automationID, commentID string) (bool, error)
}
