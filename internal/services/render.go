package services

import (
	"fmt"
	"strings"
	"time"
)

// TemplateVars is the fixed variable set available to reminder templates.
// ArrearsTotal is reserved and always renders empty for now.
type TemplateVars struct {
	TenantName   string
	UnitLabel    string
	Amount       float64
	DueDate      string
	PeriodLabel  string
	ArrearsTotal string
}

func (v TemplateVars) tokens() map[string]string {
	return map[string]string{
		"tenant_name":   v.TenantName,
		"unit_label":    v.UnitLabel,
		"amount":        fmt.Sprintf("%.2f", v.Amount),
		"due_date":      v.DueDate,
		"period_label":  v.PeriodLabel,
		"arrears_total": v.ArrearsTotal,
	}
}

// RenderTemplate substitutes every {{name}} token in body with its value.
// Tokens that aren't in the variable set are left verbatim so a typo in a
// template degrades visibly instead of erroring a whole batch.
func RenderTemplate(body string, vars TemplateVars) string {
	out := body
	for name, value := range vars.tokens() {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}

// PeriodLabel converts a YYYY-MM-DD period start into a human month-year
// label like "January 2025". Returns empty on unparseable input.
func PeriodLabel(dateStr string) string {
	if dateStr == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return ""
	}
	return t.Format("January 2006")
}

// NormalizePhone normalizes a phone number to E.164-style Kenyan format.
// Best-effort only: malformed numbers pass through to the gateway, which
// is the final arbiter.
func NormalizePhone(raw string) string {
	number := strings.Join(strings.Fields(raw), "")
	switch {
	case strings.HasPrefix(number, "+"):
		return number
	case strings.HasPrefix(number, "254"):
		return "+" + number
	case strings.HasPrefix(number, "0"):
		return "+254" + number[1:]
	case len(number) == 9:
		return "+254" + number
	default:
		return "+" + number
	}
}
