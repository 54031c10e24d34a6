package sqlinline

import (
	"strings"
	"testing"

	"hingecraft/internal/infra"
)

func TestDonationStatementsCarryMarkers(t *testing.T) {
	statements := map[string]string{
		"QEnsureDonationsTable":          QEnsureDonationsTable,
		"QEnsureDonationsCreatedAtIndex": QEnsureDonationsCreatedAtIndex,
		"QInsertDonation":                QInsertDonation,
		"QSelectDonationByID":            QSelectDonationByID,
		"QSelectLatestDonation":          QSelectLatestDonation,
		"QUpdateDonation":                QUpdateDonation,
		"QCountDonations":                QCountDonations,
		"QListDonations":                 QListDonations,
		"QListAllDonations":              QListAllDonations,
		"QStoreNow":                      QStoreNow,
	}
	seen := make(map[string]string, len(statements))
	for name, stmt := range statements {
		marker, body, err := infra.ExtractMarker(stmt)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if strings.TrimSpace(body) == "" {
			t.Fatalf("%s: empty statement body", name)
		}
		if other, dup := seen[marker]; dup {
			t.Fatalf("%s reuses marker %s from %s", name, marker, other)
		}
		seen[marker] = name
	}
}

func TestUpdateDonationNeverTouchesAmount(t *testing.T) {
	_, body, err := infra.ExtractMarker(QUpdateDonation)
	if err != nil {
		t.Fatalf("ExtractMarker: %v", err)
	}
	set := body[strings.Index(body, "set"):strings.Index(body, "where")]
	if strings.Contains(set, "amount =") || strings.Contains(set, "created_at =") {
		t.Fatalf("update statement mutates immutable columns:\n%s", set)
	}
}

func TestListDonationsBindsPagingAsBigint(t *testing.T) {
	if !strings.Contains(QListDonations, "limit $1::bigint offset $2::bigint") {
		t.Fatalf("list statement must bind paging as bigint:\n%s", QListDonations)
	}
}
