package token

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRecordNotFound         = errors.New("token record not found")
	ErrEmptyKey               = errors.New("identity key cannot be empty")
	ErrInvalidDigitCount      = errors.New("digit count must be between 0 and 64")
	ErrInvalidValidity        = errors.New("token validity must be positive")
	ErrUnsupportedAlgorithm   = errors.New("unsupported hash algorithm")
	ErrUnsupportedExpiryField = errors.New("unsupported expiry field")
)

// ExpiresAtField is the only field stores accept for EnsureExpiryIndex.
const ExpiresAtField = "expires_at"

// Store persists at most one Record per Key.
type Store interface {
	// FindByKey returns ErrRecordNotFound when no record exists.
	FindByKey(ctx context.Context, key Key) (*Record, error)

	// UpsertByKey inserts rec or replaces the existing record for key entirely.
	UpsertByKey(ctx context.Context, key Key, rec *Record) error

	// DeleteByKey succeeds when no record exists.
	DeleteByKey(ctx context.Context, key Key) error

	// EnsureExpiryIndex declares that records may be garbage collected once
	// field is older than after. Collection is eventual, see PurgeExpired.
	EnsureExpiryIndex(ctx context.Context, field string, after time.Duration) error

	// IncrementAttempts atomically adds one attempt, stamps at, and returns the
	// record as it stands after the increment. Returns ErrRecordNotFound when
	// no record exists.
	IncrementAttempts(ctx context.Context, key Key, at time.Time) (*Record, error)

	// PurgeExpired removes records past their expiry plus the grace window
	// declared by EnsureExpiryIndex and reports how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
