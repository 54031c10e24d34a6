package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied to donations created without explicit values.
const (
	DefaultCurrency      = "USD"
	DefaultSource        = "payment_page"
	DefaultPaymentStatus = PaymentStatusCompleted
)

// Known payment statuses. The column is free text; these are the values the
// payment page and dashboards emit.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Donation represents a single persisted donation event.
type Donation struct {
	ID            string
	Amount        decimal.Decimal
	Currency      string
	IsOtherAmount bool
	Source        string
	PaymentStatus string
	PaymentMethod *string
	TransactionID *string
	MemberEmail   *string
	MemberName    *string
	Metadata      Metadata
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Metadata is the free-form key/value payload attached to a donation.
type Metadata map[string]any

// MarshalMetadata serializes metadata for storage. Empty metadata is stored
// as NULL.
func MarshalMetadata(m Metadata) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// UnmarshalMetadata decodes a stored blob. NULL and empty blobs yield nil.
func UnmarshalMetadata(raw []byte) (Metadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateDonationInput carries caller supplied fields for a new donation.
// Zero values fall back to the package defaults.
type CreateDonationInput struct {
	Amount        decimal.Decimal
	Currency      string
	IsOtherAmount bool
	Source        string
	PaymentStatus string
	PaymentMethod *string
	TransactionID *string
	MemberEmail   *string
	MemberName    *string
	Metadata      Metadata
}

// Optional marks a patch value. Set distinguishes an omitted field from one
// explicitly supplied (possibly as null).
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// DonationPatch lists the mutable fields of a donation. Amount, currency,
// source and timestamps are intentionally absent.
type DonationPatch struct {
	PaymentStatus Optional[*string]
	PaymentMethod Optional[*string]
	TransactionID Optional[*string]
	MemberEmail   Optional[*string]
	MemberName    Optional[*string]
	Metadata      Optional[Metadata]
}

// IsEmpty reports whether no mutable field was supplied.
func (p DonationPatch) IsEmpty() bool {
	return !p.PaymentStatus.Set &&
		!p.PaymentMethod.Set &&
		!p.TransactionID.Set &&
		!p.MemberEmail.Set &&
		!p.MemberName.Set &&
		!p.Metadata.Set
}

// DonationPage is one page of a newest-first listing.
type DonationPage struct {
	Donations []Donation
	Total     int
	Limit     int
	Offset    int
}

// Snapshot is a point-in-time export of every donation.
type Snapshot struct {
	Timestamp      time.Time
	TotalDonations int
	Donations      []Donation
}
