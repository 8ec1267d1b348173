package services

import "testing"

func TestRenderTemplate(t *testing.T) {
	body := "Hi {{tenant_name}}, unit {{unit_label}} owes {{amount}}"
	vars := TemplateVars{
		TenantName: "Asha",
		UnitLabel:  "B12",
		Amount:     1500,
	}

	got := RenderTemplate(body, vars)
	want := "Hi Asha, unit B12 owes 1500.00"
	if got != want {
		t.Errorf("RenderTemplate() = %q, want %q", got, want)
	}
}

func TestRenderTemplateAmountFormatting(t *testing.T) {
	got := RenderTemplate("{{amount}}", TemplateVars{Amount: 12500.5})
	if got != "12500.50" {
		t.Errorf("RenderTemplate() = %q, want %q", got, "12500.50")
	}
}

func TestRenderTemplateUnknownTokensLeftVerbatim(t *testing.T) {
	body := "Hello {{tenant_name}}, see {{mystery_token}}"
	got := RenderTemplate(body, TemplateVars{TenantName: "Asha"})
	want := "Hello Asha, see {{mystery_token}}"
	if got != want {
		t.Errorf("RenderTemplate() = %q, want %q", got, want)
	}
}

func TestRenderTemplateRepeatedTokens(t *testing.T) {
	got := RenderTemplate("{{tenant_name}} {{tenant_name}}", TemplateVars{TenantName: "Asha"})
	if got != "Asha Asha" {
		t.Errorf("RenderTemplate() = %q, want %q", got, "Asha Asha")
	}
}

func TestPeriodLabel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2025-01-01", "January 2025"},
		{"2024-11-15", "November 2024"},
		{"", ""},
		{"not-a-date", ""},
	}
	for _, tt := range tests {
		if got := PeriodLabel(tt.input); got != tt.want {
			t.Errorf("PeriodLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0712345678", "+254712345678"},
		{"254712345678", "+254712345678"},
		{"712345678", "+254712345678"},
		{"+254712345678", "+254712345678"},
		{"07 1234 5678", "+254712345678"},
		{" +254 712 345 678 ", "+254712345678"},
		{"4477123456789", "+4477123456789"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.input); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
