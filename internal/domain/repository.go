package domain

import (
	"context"
	"time"
)

// DonationRepository persists donation records.
type DonationRepository interface {
	// Insert stores a new donation. It fails with a ConstraintError when the
	// id already exists or the amount is not positive.
	Insert(ctx context.Context, donation *Donation) (*Donation, error)
	// Get returns ErrNotFound when no donation has the id.
	Get(ctx context.Context, id string) (*Donation, error)
	// Latest returns the most recently created donation or ErrNotFound.
	Latest(ctx context.Context) (*Donation, error)
	// Update applies the supplied patch fields and refreshes updated_at.
	Update(ctx context.Context, id string, patch DonationPatch) (*Donation, error)
	// List returns donations newest first together with the total count.
	List(ctx context.Context, limit, offset int) ([]Donation, int, error)
	// All returns every donation newest first.
	All(ctx context.Context) ([]Donation, error)
	// Ping checks connectivity and returns the store clock.
	Ping(ctx context.Context) (time.Time, error)
}
