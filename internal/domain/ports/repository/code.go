package repository

import (
	"context"

	"access-code-service/internal/domain/model"
)

// CodeListFilter narrows the admin listing. Zero values mean "no filter".
type CodeListFilter struct {
	CodeType model.CodeType
	IsActive *bool
	Limit    int
	Offset   int
}

// CodeRepository is the port for the codes table.
type CodeRepository interface {
	// Insert adds a new code row guarded by the unique code_hash constraint.
	// It reports false (and no error) when the hash already exists, so the
	// issuance loop can skip the collision and try another candidate.
	Insert(ctx context.Context, tx Tx, code *model.Code) (bool, error)
	// FindByHash loads a code without locking, for pre-checks and lookups.
	FindByHash(ctx context.Context, tx Tx, codeHash string) (*model.Code, error)
	// FindByHashForUpdate loads an active code under an exclusive row lock
	// scoped to tx. This is the sole serialization point for concurrent
	// redemptions of the same code. Inactive codes report ErrNotFound
	// without taking the lock.
	FindByHashForUpdate(ctx context.Context, tx Tx, codeHash string) (*model.Code, error)
	// IncrementUsage bumps used_count by exactly one, store-side.
	IncrementUsage(ctx context.Context, tx Tx, codeID string) error
	// SetActive toggles the soft-disable flag.
	SetActive(ctx context.Context, tx Tx, codeID string, active bool) error
	// List returns codes newest-first, never including hash or plaintext.
	List(ctx context.Context, tx Tx, filter CodeListFilter) ([]*model.Code, error)
}
