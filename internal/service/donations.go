package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"hingecraft/internal/domain"
)

// DefaultListLimit is the page size used when the caller does not pass one.
const DefaultListLimit = 100

// Amount bounds: 12 integer digits and 8 decimal places, as decimal(20,8).
const (
	MaxAmountScale         = 8
	MaxAmountIntegerDigits = 12

	// 128 bits holds any coefficient of the column plus trailing zeros.
	maxAmountCoefficientBits   = 128
	maxAmountCoefficientDigits = 39
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z0-9]{3,5}$`)

// Health values reported by Health.
const (
	HealthHealthy        = "healthy"
	HealthUnhealthy      = "unhealthy"
	DatabaseConnected    = "connected"
	DatabaseDisconnected = "disconnected"
)

// HealthReport describes store connectivity.
type HealthReport struct {
	Status    string
	Database  string
	Timestamp time.Time
	Error     string
}

// Healthy reports whether the store answered the probe.
func (h HealthReport) Healthy() bool { return h.Status == HealthHealthy }

// DonationService validates and defaults donation input before delegating to
// the repository.
type DonationService struct {
	repo   domain.DonationRepository
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// NewDonationService wires the service to its repository.
func NewDonationService(repo domain.DonationRepository, logger zerolog.Logger) *DonationService {
	return &DonationService{
		repo:   repo,
		logger: logger.With().Str("component", "donations").Logger(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create validates input, applies defaults and persists a new donation.
func (s *DonationService) Create(ctx context.Context, in domain.CreateDonationInput) (*domain.Donation, error) {
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	code, err := normalizeCurrency(in.Currency)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	donation := &domain.Donation{
		ID:            s.newID(),
		Amount:        in.Amount,
		Currency:      code,
		IsOtherAmount: in.IsOtherAmount,
		Source:        withDefault(in.Source, domain.DefaultSource),
		PaymentStatus: withDefault(in.PaymentStatus, domain.DefaultPaymentStatus),
		PaymentMethod: in.PaymentMethod,
		TransactionID: in.TransactionID,
		MemberEmail:   in.MemberEmail,
		MemberName:    in.MemberName,
		Metadata:      in.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	stored, err := s.repo.Insert(ctx, donation)
	if err != nil {
		s.logger.Error().Err(err).Str("donation_id", donation.ID).Msg("create donation failed")
		return nil, fmt.Errorf("create donation: %w", err)
	}
	s.logger.Info().
		Str("donation_id", stored.ID).
		Str("amount", stored.Amount.String()).
		Str("currency", stored.Currency).
		Str("payment_status", stored.PaymentStatus).
		Msg("donation created")
	return stored, nil
}

// GetLatest returns the most recently created donation, or ErrNotFound when
// the store is empty.
func (s *DonationService) GetLatest(ctx context.Context) (*domain.Donation, error) {
	donation, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest donation: %w", err)
	}
	return donation, nil
}

// GetByID returns the donation with id, or ErrNotFound.
func (s *DonationService) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrNotFound
	}
	donation, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get donation: %w", err)
	}
	return donation, nil
}

// Update applies the whitelisted patch fields. A patch that touches none of
// them is a no-op and returns the stored record unchanged.
func (s *DonationService) Update(ctx context.Context, id string, patch domain.DonationPatch) (*domain.Donation, error) {
	if patch.PaymentStatus.Set {
		if patch.PaymentStatus.Value == nil || strings.TrimSpace(*patch.PaymentStatus.Value) == "" {
			return nil, domain.NewValidationError("payment_status", "must not be empty")
		}
		status := strings.TrimSpace(*patch.PaymentStatus.Value)
		patch.PaymentStatus.Value = &status
	}
	if patch.IsEmpty() {
		return s.GetByID(ctx, id)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrNotFound
	}
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("donation_id", id).Msg("update donation failed")
		}
		return nil, fmt.Errorf("update donation: %w", err)
	}
	s.logger.Info().Str("donation_id", id).Str("payment_status", updated.PaymentStatus).Msg("donation updated")
	return updated, nil
}

// ListAll returns one newest-first page and the total record count.
func (s *DonationService) ListAll(ctx context.Context, limit, offset int) (*domain.DonationPage, error) {
	if limit < 0 {
		return nil, domain.NewValidationError("limit", "must be a non-negative integer")
	}
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "must be a non-negative integer")
	}
	if int64(limit) > math.MaxInt32 {
		return nil, domain.NewValidationError("limit", "must not exceed %d", math.MaxInt32)
	}
	if int64(offset) > math.MaxInt32 {
		return nil, domain.NewValidationError("offset", "must not exceed %d", math.MaxInt32)
	}
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return &domain.DonationPage{Donations: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Export snapshots every stored donation.
func (s *DonationService) Export(ctx context.Context) (*domain.Snapshot, error) {
	items, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("export donations: %w", err)
	}
	return &domain.Snapshot{
		Timestamp:      s.now().UTC(),
		TotalDonations: len(items),
		Donations:      items,
	}, nil
}

// Health probes the store. It never fails; connectivity problems are
// reported in the returned HealthReport.
func (s *DonationService) Health(ctx context.Context) HealthReport {
	storeTime, err := s.repo.Ping(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("store health check failed")
		return HealthReport{
			Status:    HealthUnhealthy,
			Database:  DatabaseDisconnected,
			Timestamp: s.now().UTC(),
			Error:     err.Error(),
		}
	}
	return HealthReport{
		Status:    HealthHealthy,
		Database:  DatabaseConnected,
		Timestamp: storeTime,
	}
}

// validateAmount bounds the amount before anything formats it. Every check
// runs on the exponent or a bounded coefficient, so huge exponents such as
// 1e1000000000 are rejected without being expanded.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than 0")
	}
	if amount.Coefficient().BitLen() > maxAmountCoefficientBits {
		return domain.NewValidationError("amount", "has too many digits")
	}
	exp := int64(amount.Exponent())
	if exp > MaxAmountIntegerDigits {
		return domain.NewValidationError("amount", "must have at most %d integer digits", MaxAmountIntegerDigits)
	}
	if exp < -(MaxAmountScale+maxAmountCoefficientDigits) || !amount.Truncate(MaxAmountScale).Equal(amount) {
		return domain.NewValidationError("amount", "must have at most %d decimal places", MaxAmountScale)
	}
	if int64(amount.NumDigits())+exp > MaxAmountIntegerDigits {
		return domain.NewValidationError("amount", "must have at most %d integer digits", MaxAmountIntegerDigits)
	}
	return nil
}

// normalizeCurrency upper-cases code. ISO 4217 codes are canonicalized;
// other short alphanumeric codes such as BTC are kept as given.
func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.DefaultCurrency, nil
	}
	if !currencyCodePattern.MatchString(code) {
		return "", domain.NewValidationError("currency", "%q must be 3 to 5 letters or digits", code)
	}
	if unit, err := currency.ParseISO(code); err == nil {
		return unit.String(), nil
	}
	return code, nil
}

func withDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}
