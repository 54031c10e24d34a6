package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"hingecraft/internal/domain"
)

// DonationGORM is the gorm model for the donations table. SQLite would store a
// decimal column as REAL, so the amount is kept as its exact decimal text.
type DonationGORM struct {
	ID            string          `gorm:"primaryKey;type:text"`
	Amount        decimal.Decimal `gorm:"type:text;not null;check:donations_amount_positive,CAST(amount AS REAL) > 0"`
	Currency      string          `gorm:"type:text;not null"`
	IsOtherAmount bool            `gorm:"not null"`
	Source        string          `gorm:"type:text;not null"`
	PaymentStatus string          `gorm:"type:text;not null"`
	PaymentMethod *string         `gorm:"type:text"`
	TransactionID *string         `gorm:"type:text"`
	MemberEmail   *string         `gorm:"type:text"`
	MemberName    *string         `gorm:"type:text"`
	Metadata      *string         `gorm:"type:text"`
	CreatedAt     time.Time       `gorm:"not null;index:donations_created_at_idx,sort:desc"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName pins the table name shared with the Postgres schema.
func (DonationGORM) TableName() string { return "donations" }

// DonationRepositoryGorm implements domain.DonationRepository on SQLite via gorm.
type DonationRepositoryGorm struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time
}

// NewDonationGormRepository creates a gorm backed donation repository.
func NewDonationGormRepository(db *gorm.DB, timeout time.Duration) *DonationRepositoryGorm {
	return &DonationRepositoryGorm{db: db, timeout: timeout, now: time.Now}
}

// EnsureSchema auto-migrates the donations table.
func (r *DonationRepositoryGorm) EnsureSchema(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&DonationGORM{}); err != nil {
		return fmt.Errorf("migrate donations: %w", err)
	}
	return nil
}

// Insert stores a new donation.
func (r *DonationRepositoryGorm) Insert(ctx context.Context, donation *domain.Donation) (*domain.Donation, error) {
	if donation == nil {
		return nil, domain.NewValidationError("", "donation is required")
	}
	if !donation.Amount.IsPositive() {
		return nil, &domain.ConstraintError{Kind: domain.ConstraintCheck, Constraint: "donations_amount_positive"}
	}
	model, err := toDonationGORM(donation)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, classifyGormError(err)
	}
	return model.toDomain()
}

// Get fetches a donation by id.
func (r *DonationRepositoryGorm) Get(ctx context.Context, id string) (*domain.Donation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	var model DonationGORM
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, classifyGormError(err)
	}
	return model.toDomain()
}

// Latest returns the newest donation.
func (r *DonationRepositoryGorm) Latest(ctx context.Context) (*domain.Donation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	var model DonationGORM
	if err := r.db.WithContext(ctx).Order("created_at desc").Order("id desc").Limit(1).Take(&model).Error; err != nil {
		return nil, classifyGormError(err)
	}
	return model.toDomain()
}

// Update applies the supplied patch fields. updated_at always moves past
// created_at, padding by a microsecond when the clock has not advanced.
func (r *DonationRepositoryGorm) Update(ctx context.Context, id string, patch domain.DonationPatch) (*domain.Donation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var updated *domain.Donation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model DonationGORM
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}

		changes := map[string]any{}
		if patch.PaymentStatus.Set {
			changes["payment_status"] = patch.PaymentStatus.Value
		}
		if patch.PaymentMethod.Set {
			changes["payment_method"] = patch.PaymentMethod.Value
		}
		if patch.TransactionID.Set {
			changes["transaction_id"] = patch.TransactionID.Value
		}
		if patch.MemberEmail.Set {
			changes["member_email"] = patch.MemberEmail.Value
		}
		if patch.MemberName.Set {
			changes["member_name"] = patch.MemberName.Value
		}
		if patch.Metadata.Set {
			raw, err := domain.MarshalMetadata(patch.Metadata.Value)
			if err != nil {
				return domain.NewValidationError("metadata", "not serializable: %v", err)
			}
			changes["metadata"] = nullableText(raw)
		}

		now := r.now().UTC()
		if !now.After(model.CreatedAt) {
			now = model.CreatedAt.Add(time.Microsecond)
		}
		changes["updated_at"] = now

		if err := tx.Model(&DonationGORM{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}
		d, err := model.toDomain()
		if err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, classifyGormError(err)
	}
	return updated, nil
}

// List returns one page of donations, newest first, with the total count.
func (r *DonationRepositoryGorm) List(ctx context.Context, limit, offset int) ([]domain.Donation, int, error) {
	if limit < 0 {
		return nil, 0, domain.NewValidationError("limit", "must be a non-negative integer")
	}
	if offset < 0 {
		return nil, 0, domain.NewValidationError("offset", "must be a non-negative integer")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&DonationGORM{}).Count(&total).Error; err != nil {
		return nil, 0, classifyGormError(err)
	}
	items := []domain.Donation{}
	if limit == 0 {
		return items, int(total), nil
	}

	var models []DonationGORM
	if err := db.Order("created_at desc").Order("id desc").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, 0, classifyGormError(err)
	}
	for i := range models {
		d, err := models[i].toDomain()
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *d)
	}
	return items, int(total), nil
}

// All returns every donation, newest first.
func (r *DonationRepositoryGorm) All(ctx context.Context) ([]domain.Donation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	var models []DonationGORM
	if err := r.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&models).Error; err != nil {
		return nil, classifyGormError(err)
	}
	items := make([]domain.Donation, 0, len(models))
	for i := range models {
		d, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, nil
}

// Ping checks that the database handle is usable. SQLite has no server
// clock, so the local time is reported.
func (r *DonationRepositoryGorm) Ping(ctx context.Context) (time.Time, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	sqlDB, err := r.db.DB()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return time.Time{}, classifyGormError(err)
	}
	return r.now().UTC(), nil
}

func (r *DonationRepositoryGorm) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func toDonationGORM(d *domain.Donation) (*DonationGORM, error) {
	raw, err := domain.MarshalMetadata(d.Metadata)
	if err != nil {
		return nil, domain.NewValidationError("metadata", "not serializable: %v", err)
	}
	return &DonationGORM{
		ID:            d.ID,
		Amount:        d.Amount,
		Currency:      d.Currency,
		IsOtherAmount: d.IsOtherAmount,
		Source:        d.Source,
		PaymentStatus: d.PaymentStatus,
		PaymentMethod: d.PaymentMethod,
		TransactionID: d.TransactionID,
		MemberEmail:   d.MemberEmail,
		MemberName:    d.MemberName,
		Metadata:      nullableText(raw),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}, nil
}

func (m *DonationGORM) toDomain() (*domain.Donation, error) {
	var raw []byte
	if m.Metadata != nil {
		raw = []byte(*m.Metadata)
	}
	metadata, err := domain.UnmarshalMetadata(raw)
	if err != nil {
		return nil, fmt.Errorf("decode stored metadata: %w", err)
	}
	return &domain.Donation{
		ID:            m.ID,
		Amount:        m.Amount,
		Currency:      m.Currency,
		IsOtherAmount: m.IsOtherAmount,
		Source:        m.Source,
		PaymentStatus: m.PaymentStatus,
		PaymentMethod: m.PaymentMethod,
		TransactionID: m.TransactionID,
		MemberEmail:   m.MemberEmail,
		MemberName:    m.MemberName,
		Metadata:      metadata,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}, nil
}

func nullableText(raw []byte) *string {
	if raw == nil {
		return nil
	}
	s := string(raw)
	return &s
}

// classifyGormError maps gorm and SQLite errors onto the domain taxonomy.
func classifyGormError(err error) error {
	if err == nil {
		return nil
	}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &domain.ConstraintError{Kind: domain.ConstraintUnique, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrStoreTimeout, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &domain.ConstraintError{Kind: domain.ConstraintUnique, Err: err}
	case strings.Contains(msg, "CHECK constraint failed"):
		return &domain.ConstraintError{Kind: domain.ConstraintCheck, Err: err}
	case strings.Contains(msg, "database is closed"), strings.Contains(msg, "unable to open database"):
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}

var _ domain.DonationRepository = (*DonationRepositoryGorm)(nil)
