// Package report renders the plain-text export of an assessment.
package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cvrisk/ml"
	"cvrisk/risk"
)

const (
	Title          = "SLE Cardiovascular Risk Assessment"
	ContentType    = "text/plain; charset=utf-8"
	timestampStyle = "2006-01-02 15:04"
	fileDateStyle  = "20060102"
)

// FileName is the download name for an export generated at t.
func FileName(t time.Time) string {
	return "SLE_CV_Risk_" + t.Format(fileDateStyle) + ".txt"
}

// Render builds the export document for a. It reads only from a, so the
// text always matches the assessment it was called with.
func Render(a *risk.Assessment, generated time.Time) string {
	p := message.NewPrinter(language.English)
	r := a.Record

	var b strings.Builder
	b.WriteString(Title + "\n")
	b.WriteString("Generated: " + generated.Format(timestampStyle) + "\n\n")

	b.WriteString("Patient Characteristics:\n")
	p.Fprintf(&b, "- Age: %d years\n", r.Age)
	p.Fprintf(&b, "- Sex: %s\n", r.Sex.Label())
	for _, line := range characteristics(r) {
		p.Fprintf(&b, "- %s: %s\n", line.label, yesNo(line.value))
	}

	b.WriteString("\nResult:\n")
	p.Fprintf(&b, "5-Year CV Event Risk: %.1f%%\n", a.RiskPercentage)
	p.Fprintf(&b, "Risk Category: %s\n", a.Category)

	if footer := modelFooter(a.Model); footer != "" {
		b.WriteString("\n" + footer + "\n")
	}
	return b.String()
}

type characteristic struct {
	label string
	value bool
}

func characteristics(r ml.PatientRecord) []characteristic {
	return []characteristic{
		{"Hypertension", r.Hypertension},
		{"Diabetes", r.Diabetes},
		{"Dyslipidemia", r.Dyslipidemia},
		{"BMI ≥25", r.Obesity},
		{"Smoking", r.Smoking},
		{"APL", r.Antiphospholipid},
		{"Cutaneous signs", r.Cutaneous},
		{"Joint involvement", r.Joint},
	}
}

func modelFooter(meta ml.ModelMetadata) string {
	if meta.Name == "" {
		return ""
	}
	if meta.CIndex > 0 {
		return fmt.Sprintf("%s (C-index: %.2f)", meta.Name, meta.CIndex)
	}
	return meta.Name
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
