package export

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"hingecraft/internal/domain"
)

const (
	donationsSheet = "Donations"
	summarySheet   = "Summary"
)

var donationColumns = []any{
	"ID", "Amount", "Currency", "Other Amount", "Source", "Payment Status",
	"Payment Method", "Transaction ID", "Member Email", "Member Name",
	"Metadata", "Created At", "Updated At",
}

// XLSX renders the snapshot as a workbook with one row per donation and a
// per-currency summary sheet.
func XLSX(snap *domain.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", donationsSheet); err != nil {
		return nil, fmt.Errorf("export: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(donationsSheet, "A1", &donationColumns); err != nil {
		return nil, fmt.Errorf("export: write header: %w", err)
	}

	totals := map[string]decimal.Decimal{}
	for i, d := range snap.Donations {
		metadata, err := domain.MarshalMetadata(d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("export: encode metadata for %s: %w", d.ID, err)
		}
		row := []any{
			d.ID,
			d.Amount.InexactFloat64(),
			d.Currency,
			d.IsOtherAmount,
			d.Source,
			d.PaymentStatus,
			deref(d.PaymentMethod),
			deref(d.TransactionID),
			deref(d.MemberEmail),
			deref(d.MemberName),
			string(metadata),
			d.CreatedAt.UTC().Format(time.RFC3339),
			d.UpdatedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(donationsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("export: write row %d: %w", i+2, err)
		}
		totals[d.Currency] = totals[d.Currency].Add(d.Amount)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("export: add summary sheet: %w", err)
	}
	summary := [][]any{
		{"Generated At", snap.Timestamp.UTC().Format(time.RFC3339)},
		{"Total Donations", snap.TotalDonations},
		{},
		{"Currency", "Total Amount"},
	}
	currencies := make([]string, 0, len(totals))
	for code := range totals {
		currencies = append(currencies, code)
	}
	sort.Strings(currencies)
	for _, code := range currencies {
		summary = append(summary, []any{code, totals[code].String()})
	}
	for i, row := range summary {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("export: write summary: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
