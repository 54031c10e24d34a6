package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"hingecraft/internal/domain"
	"hingecraft/internal/export"
	"hingecraft/internal/service"
)

type createDonationRequest struct {
	Amount        json.RawMessage `json:"amount"`
	Currency      *string         `json:"currency"`
	IsOtherAmount *bool           `json:"is_other_amount"`
	Source        *string         `json:"source"`
	PaymentStatus *string         `json:"payment_status"`
	PaymentMethod *string         `json:"payment_method"`
	TransactionID *string         `json:"transaction_id"`
	MemberEmail   *string         `json:"member_email"`
	MemberName    *string         `json:"member_name"`
	Metadata      domain.Metadata `json:"metadata"`
}

type createDonationResponse struct {
	ID            string      `json:"id"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	IsOtherAmount bool        `json:"is_other_amount"`
	CreatedAt     time.Time   `json:"created_at"`
}

type updateDonationResponse struct {
	ID            string    `json:"id"`
	PaymentStatus string    `json:"payment_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type listDonationsResponse struct {
	Donations []export.Record `json:"donations"`
	Total     int             `json:"total"`
	Limit     int             `json:"limit"`
	Offset    int             `json:"offset"`
}

func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	var req createDonationRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	in := domain.CreateDonationInput{
		Amount:        amount,
		Currency:      deref(req.Currency),
		Source:        deref(req.Source),
		PaymentStatus: deref(req.PaymentStatus),
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		MemberEmail:   req.MemberEmail,
		MemberName:    req.MemberName,
		Metadata:      req.Metadata,
	}
	if req.IsOtherAmount != nil {
		in.IsOtherAmount = *req.IsOtherAmount
	}

	created, err := a.Donations.Create(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, createDonationResponse{
		ID:            created.ID,
		Amount:        json.Number(created.Amount.String()),
		Currency:      created.Currency,
		IsOtherAmount: created.IsOtherAmount,
		CreatedAt:     created.CreatedAt.UTC(),
	})
}

func (a *App) DonationsLatest(w http.ResponseWriter, r *http.Request) {
	donation, err := a.Donations.GetLatest(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, export.NewRecord(*donation))
}

func (a *App) DonationsGet(w http.ResponseWriter, r *http.Request) {
	donation, err := a.Donations.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, export.NewRecord(*donation))
}

func (a *App) DonationsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), "limit", service.DefaultListLimit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	offset, err := queryInt(q.Get("offset"), "offset", 0)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	page, err := a.Donations.ListAll(r.Context(), limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, listDonationsResponse{
		Donations: export.NewRecords(page.Donations),
		Total:     page.Total,
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
}

func (a *App) DonationsUpdate(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := decodeBody(r, &fields); err != nil {
		a.fail(w, r, err)
		return
	}
	patch, err := parsePatch(fields)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	updated, err := a.Donations.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, updateDonationResponse{
		ID:            updated.ID,
		PaymentStatus: updated.PaymentStatus,
		UpdatedAt:     updated.UpdatedAt.UTC(),
	})
}

// decodeBody reads a single JSON value from the request body. Malformed
// bodies surface as validation errors.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return domain.NewValidationError("", "could not read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.NewValidationError("", "request body must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.NewValidationError(typeErr.Field, "has the wrong type")
		}
		return domain.NewValidationError("", "request body must be a JSON object")
	}
	if dec.More() {
		return domain.NewValidationError("", "request body must contain a single JSON object")
	}
	return nil
}

// maxAmountLength bounds the amount text before it is parsed.
const maxAmountLength = 64

// parseAmount accepts a JSON number or a numeric string.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Decimal{}, domain.NewValidationError("amount", "is required")
	}
	if len(text) > maxAmountLength+2 {
		return decimal.Decimal{}, domain.NewValidationError("amount", "has too many digits")
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, domain.NewValidationError("amount", "must be a number")
		}
		text = strings.TrimSpace(s)
	}
	if len(text) > maxAmountLength {
		return decimal.Decimal{}, domain.NewValidationError("amount", "has too many digits")
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, domain.NewValidationError("amount", "must be a number")
	}
	return amount, nil
}

var patchStringFields = map[string]func(*domain.DonationPatch) *domain.Optional[*string]{
	"payment_status": func(p *domain.DonationPatch) *domain.Optional[*string] { return &p.PaymentStatus },
	"payment_method": func(p *domain.DonationPatch) *domain.Optional[*string] { return &p.PaymentMethod },
	"transaction_id": func(p *domain.DonationPatch) *domain.Optional[*string] { return &p.TransactionID },
	"member_email":   func(p *domain.DonationPatch) *domain.Optional[*string] { return &p.MemberEmail },
	"member_name":    func(p *domain.DonationPatch) *domain.Optional[*string] { return &p.MemberName },
}

// parsePatch keeps only the mutable fields. Keys outside that set, including
// amount and id, are ignored.
func parsePatch(fields map[string]json.RawMessage) (domain.DonationPatch, error) {
	var patch domain.DonationPatch
	for name, slot := range patchStringFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		target := slot(&patch)
		if isNull(raw) {
			*target = domain.Some[*string](nil)
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return patch, domain.NewValidationError(name, "must be a string or null")
		}
		*target = domain.Some(&s)
	}
	if raw, ok := fields["metadata"]; ok {
		if isNull(raw) {
			patch.Metadata = domain.Some[domain.Metadata](nil)
		} else {
			var m domain.Metadata
			if err := json.Unmarshal(raw, &m); err != nil {
				return patch, domain.NewValidationError("metadata", "must be a JSON object or null")
			}
			patch.Metadata = domain.Some(m)
		}
	}
	return patch, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// queryInt parses a paging parameter, falling back to def when absent.
func queryInt(raw, field string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(field, "must be a non-negative integer")
	}
	return n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
