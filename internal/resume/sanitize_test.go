package resume

import (
	"testing"

	"phFolio/internal/database"
)

func strPtr(s string) *string { return &s }

func TestSanitizeItems_TrimAndNull(t *testing.T) {
	items := []*database.WorkExperience{
		{
			CompanyName: "  Acme  ",
			Role:        "engineer",
			StartDate:   strPtr(" 2023-01-01 "),
			EndDate:     strPtr("   "),
			Description: strPtr(""),
			IsCurrent:   true,
		},
	}

	SanitizeItems(items)

	got := items[0]
	if got.CompanyName != "Acme" {
		t.Errorf("company = %q, want trimmed", got.CompanyName)
	}
	if got.StartDate == nil || *got.StartDate != "2023-01-01" {
		t.Errorf("start date = %v, want trimmed value", got.StartDate)
	}
	if got.EndDate != nil {
		t.Errorf("end date = %v, want nil for whitespace-only input", *got.EndDate)
	}
	if got.Description != nil {
		t.Errorf("description = %v, want nil for empty input", *got.Description)
	}
	if !got.IsCurrent {
		t.Error("non-string field changed by sanitize")
	}
}

func TestSanitizeItems_NilPointerPreserved(t *testing.T) {
	items := []*database.Award{
		{Title: "prize", Issuer: nil, Date: nil},
	}

	SanitizeItems(items)

	if items[0].Issuer != nil || items[0].Date != nil {
		t.Error("nil optional fields must stay nil")
	}
}

func TestSanitizeItems_OrderAndShapePreserved(t *testing.T) {
	items := []*database.Education{
		{SchoolName: "first"},
		{SchoolName: " second "},
		{SchoolName: "third"},
	}

	out := SanitizeItems(items)

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	want := []string{"first", "second", "third"}
	for i, item := range out {
		if item.SchoolName != want[i] {
			t.Errorf("item %d = %q, want %q", i, item.SchoolName, want[i])
		}
	}
}
