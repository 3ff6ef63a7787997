// services/verifier-svc/internal/report/format.go
package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ParseLocale разбирает тег локали; пустой или неизвестный тег даёт английский
func ParseLocale(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}

// Percent доля в процентах с одним знаком после разделителя локали: 0.6316 -> "63.2%" / "63,2%"
func Percent(p float64, tag language.Tag) string {
	return message.NewPrinter(tag).Sprintf("%.1f%%", p*100)
}

// Number число с фиксированной точностью в локали
func Number(v float64, precision int, tag language.Tag) string {
	return message.NewPrinter(tag).Sprintf("%.*f", precision, v)
}
