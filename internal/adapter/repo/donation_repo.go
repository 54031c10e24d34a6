package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hingecraft/internal/domain"
	"hingecraft/internal/infra"
	"hingecraft/internal/sqlinline"
)

// DonationRepositoryPG implements domain.DonationRepository using PostgreSQL.
type DonationRepositoryPG struct {
	sql     infra.SQLExecutor
	timeout time.Duration
}

// NewDonationRepository creates a new donation repo. Every call is bounded
// by timeout; a zero timeout leaves the caller's deadline in charge.
func NewDonationRepository(sql infra.SQLExecutor, timeout time.Duration) *DonationRepositoryPG {
	return &DonationRepositoryPG{sql: sql, timeout: timeout}
}

// EnsureSchema creates the donations table and its index when missing.
func (r *DonationRepositoryPG) EnsureSchema(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	for _, stmt := range []string{sqlinline.QEnsureDonationsTable, sqlinline.QEnsureDonationsCreatedAtIndex} {
		if _, err := r.sql.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure donations schema: %w", infra.ClassifyStoreError(err))
		}
	}
	return nil
}

// Insert stores a new donation and returns the persisted row.
func (r *DonationRepositoryPG) Insert(ctx context.Context, donation *domain.Donation) (*domain.Donation, error) {
	if donation == nil {
		return nil, domain.NewValidationError("", "donation is required")
	}
	if !donation.Amount.IsPositive() {
		return nil, &domain.ConstraintError{Kind: domain.ConstraintCheck, Constraint: "donations_amount_positive"}
	}
	metadata, err := domain.MarshalMetadata(donation.Metadata)
	if err != nil {
		return nil, domain.NewValidationError("metadata", "not serializable: %v", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	row := r.sql.QueryRow(ctx, sqlinline.QInsertDonation,
		donation.ID,
		donation.Amount.String(),
		donation.Currency,
		donation.IsOtherAmount,
		donation.Source,
		donation.PaymentStatus,
		donation.PaymentMethod,
		donation.TransactionID,
		donation.MemberEmail,
		donation.MemberName,
		metadata,
		donation.CreatedAt,
		donation.UpdatedAt,
	)
	stored, err := scanDonation(row)
	if err != nil {
		return nil, infra.ClassifyStoreError(err)
	}
	return stored, nil
}

// Get fetches a donation by id.
func (r *DonationRepositoryPG) Get(ctx context.Context, id string) (*domain.Donation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	donation, err := scanDonation(r.sql.QueryRow(ctx, sqlinline.QSelectDonationByID, id))
	if err != nil {
		return nil, infra.ClassifyStoreError(err)
	}
	return donation, nil
}

// Latest returns the newest donation.
func (r *DonationRepositoryPG) Latest(ctx context.Context) (*domain.Donation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	donation, err := scanDonation(r.sql.QueryRow(ctx, sqlinline.QSelectLatestDonation))
	if err != nil {
		return nil, infra.ClassifyStoreError(err)
	}
	return donation, nil
}

// Update applies the supplied patch fields in a single statement.
func (r *DonationRepositoryPG) Update(ctx context.Context, id string, patch domain.DonationPatch) (*domain.Donation, error) {
	var metadata []byte
	if patch.Metadata.Set {
		raw, err := domain.MarshalMetadata(patch.Metadata.Value)
		if err != nil {
			return nil, domain.NewValidationError("metadata", "not serializable: %v", err)
		}
		metadata = raw
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateDonation,
		id,
		patch.PaymentStatus.Set, patch.PaymentStatus.Value,
		patch.PaymentMethod.Set, patch.PaymentMethod.Value,
		patch.TransactionID.Set, patch.TransactionID.Value,
		patch.MemberEmail.Set, patch.MemberEmail.Value,
		patch.MemberName.Set, patch.MemberName.Value,
		patch.Metadata.Set, metadata,
	)
	donation, err := scanDonation(row)
	if err != nil {
		return nil, infra.ClassifyStoreError(err)
	}
	return donation, nil
}

// List returns one page of donations, newest first, with the total count.
func (r *DonationRepositoryPG) List(ctx context.Context, limit, offset int) ([]domain.Donation, int, error) {
	if limit < 0 {
		return nil, 0, domain.NewValidationError("limit", "must be a non-negative integer")
	}
	if offset < 0 {
		return nil, 0, domain.NewValidationError("offset", "must be a non-negative integer")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.sql.QueryRow(ctx, sqlinline.QCountDonations).Scan(&total); err != nil {
		return nil, 0, infra.ClassifyStoreError(err)
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListDonations, limit, offset)
	if err != nil {
		return nil, 0, infra.ClassifyStoreError(err)
	}
	items, err := collectDonations(rows)
	if err != nil {
		return nil, 0, infra.ClassifyStoreError(err)
	}
	return items, int(total), nil
}

// All returns every donation, newest first.
func (r *DonationRepositoryPG) All(ctx context.Context) ([]domain.Donation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.sql.Query(ctx, sqlinline.QListAllDonations)
	if err != nil {
		return nil, infra.ClassifyStoreError(err)
	}
	items, err := collectDonations(rows)
	if err != nil {
		return nil, infra.ClassifyStoreError(err)
	}
	return items, nil
}

// Ping round-trips to the database and returns its clock.
func (r *DonationRepositoryPG) Ping(ctx context.Context) (time.Time, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	var now time.Time
	if err := r.sql.QueryRow(ctx, sqlinline.QStoreNow).Scan(&now); err != nil {
		return time.Time{}, infra.ClassifyStoreError(err)
	}
	return now.UTC(), nil
}

func (r *DonationRepositoryPG) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func collectDonations(rows pgx.Rows) ([]domain.Donation, error) {
	defer rows.Close()
	items := []domain.Donation{}
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *donation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var (
		donation domain.Donation
		amount   string
		metadata []byte
	)
	if err := row.Scan(
		&donation.ID,
		&amount,
		&donation.Currency,
		&donation.IsOtherAmount,
		&donation.Source,
		&donation.PaymentStatus,
		&donation.PaymentMethod,
		&donation.TransactionID,
		&donation.MemberEmail,
		&donation.MemberName,
		&metadata,
		&donation.CreatedAt,
		&donation.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	donation.Amount = parsed
	if donation.Metadata, err = domain.UnmarshalMetadata(metadata); err != nil {
		return nil, fmt.Errorf("decode stored metadata: %w", err)
	}
	donation.CreatedAt = donation.CreatedAt.UTC()
	donation.UpdatedAt = donation.UpdatedAt.UTC()
	return &donation, nil
}

var _ domain.DonationRepository = (*DonationRepositoryPG)(nil)
