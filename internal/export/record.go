// Package export renders donation snapshots as JSON, XLSX and zip bundles.
package export

import (
	"encoding/json"
	"time"

	"hingecraft/internal/domain"
)

// Record is the wire form of a donation.
type Record struct {
	ID            string          `json:"id"`
	Amount        json.Number     `json:"amount"`
	Currency      string          `json:"currency"`
	IsOtherAmount bool            `json:"is_other_amount"`
	Source        string          `json:"source"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod *string         `json:"payment_method"`
	TransactionID *string         `json:"transaction_id"`
	MemberEmail   *string         `json:"member_email"`
	MemberName    *string         `json:"member_name"`
	Metadata      domain.Metadata `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewRecord converts a donation to its wire form. Amounts are emitted as
// JSON numbers carrying the exact decimal digits.
func NewRecord(d domain.Donation) Record {
	return Record{
		ID:            d.ID,
		Amount:        json.Number(d.Amount.String()),
		Currency:      d.Currency,
		IsOtherAmount: d.IsOtherAmount,
		Source:        d.Source,
		PaymentStatus: d.PaymentStatus,
		PaymentMethod: d.PaymentMethod,
		TransactionID: d.TransactionID,
		MemberEmail:   d.MemberEmail,
		MemberName:    d.MemberName,
		Metadata:      d.Metadata,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

// NewRecords converts a slice, never returning nil.
func NewRecords(items []domain.Donation) []Record {
	out := make([]Record, 0, len(items))
	for _, d := range items {
		out = append(out, NewRecord(d))
	}
	return out
}

// Document is the JSON form of a snapshot.
type Document struct {
	Timestamp      time.Time `json:"timestamp"`
	TotalDonations int       `json:"total_donations"`
	Donations      []Record  `json:"donations"`
}

// NewDocument converts a snapshot to its wire form.
func NewDocument(snap *domain.Snapshot) Document {
	return Document{
		Timestamp:      snap.Timestamp.UTC(),
		TotalDonations: snap.TotalDonations,
		Donations:      NewRecords(snap.Donations),
	}
}
