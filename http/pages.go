package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"cvrisk/ml"
	"cvrisk/report"
	"cvrisk/risk"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).ParseFS(templateFS, "templates/*.html"))

const defaultAge = 35

type flagView struct {
	Name    string
	Label   string
	Group   string
	Checked bool
}

var flagLabels = map[string]string{
	ml.FieldHypertension:     "Hypertension",
	ml.FieldDiabetes:         "Diabetes mellitus",
	ml.FieldDyslipidemia:     "Dyslipidemia",
	ml.FieldObesity:          "BMI ≥25",
	ml.FieldSmoking:          "Smoking (current or past)",
	ml.FieldAntiphospholipid: "Antiphospholipid antibodies",
	ml.FieldCutaneous:        "Inaugural cutaneous signs",
	ml.FieldJoint:            "Inaugural joint involvement",
}

var sleSpecific = map[string]bool{
	ml.FieldAntiphospholipid: true,
	ml.FieldCutaneous:        true,
	ml.FieldJoint:            true,
}

type pageView struct {
	ModelAvailable bool
	LoadError      string
	Model          ml.ModelMetadata
}

type formView struct {
	pageView
	Age    string
	MinAge int
	MaxAge int
	Sex    ml.Sex
	Flags  []flagView
	Error  string
}

type characteristicView struct {
	Label string
	Value string
}

type resultView struct {
	pageView
	Assessment      *risk.Assessment
	Category        string
	CategoryClass   string
	Characteristics []characteristicView
	Bars            barChart
	Curve           curveChart
	ExportURL       string
}

func (h *Handlers) page() pageView {
	v := pageView{ModelAvailable: h.evaluator.Available()}
	if v.ModelAvailable {
		v.Model = h.evaluator.Model().Metadata()
	} else if h.loadErr != nil {
		v.LoadError = h.loadErr.Error()
	}
	return v
}

func (h *Handlers) newForm(raw ml.RawRecord) formView {
	v := formView{
		pageView: h.page(),
		Age:      raw.Age,
		MinAge:   ml.MinAge,
		MaxAge:   ml.MaxAge,
		Sex:      ml.Female,
	}
	if v.Age == "" {
		v.Age = strconv.Itoa(defaultAge)
	}
	if sex, err := ml.ParseSex(raw.Sex); err == nil {
		v.Sex = sex
	}
	for _, name := range ml.FlagFields() {
		group := "traditional"
		if sleSpecific[name] {
			group = "sle"
		}
		checked := raw.Flags[name] != "" && raw.Flags[name] != "0" && raw.Flags[name] != "false"
		v.Flags = append(v.Flags, flagView{Name: name, Label: flagLabels[name], Group: group, Checked: checked})
	}
	return v
}

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !h.evaluator.Available() {
		status = http.StatusServiceUnavailable
	}
	h.render(w, status, "form.html", h.newForm(ml.RawRecord{}))
}

func (h *Handlers) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "form.html", h.formError(ml.RawRecord{}, "The form could not be read."))
		return
	}
	raw := ml.RawRecord{
		Age:   r.PostFormValue("age"),
		Sex:   r.PostFormValue("sex"),
		Flags: make(map[string]string),
	}
	for _, name := range ml.FlagFields() {
		raw.Flags[name] = r.PostFormValue(name)
	}

	if !h.evaluator.Available() {
		h.recordFailure(r.Context(), risk.ErrModelUnavailable, 0)
		h.render(w, http.StatusServiceUnavailable, "form.html", h.newForm(raw))
		return
	}

	record, err := ml.Preprocess(raw)
	if err != nil {
		err = &risk.EvaluationError{Stage: risk.StageValidate, Err: err}
		h.recordFailure(r.Context(), err, 0)
		h.render(w, statusFor(err), "form.html", h.formError(raw, err.Error()))
		return
	}

	a, err := h.evaluate(r.Context(), record)
	if err != nil {
		h.render(w, statusFor(err), "form.html", h.formError(raw, err.Error()))
		return
	}
	h.render(w, http.StatusOK, "result.html", h.newResult(a))
}

func (h *Handlers) formError(raw ml.RawRecord, message string) formView {
	v := h.newForm(raw)
	v.Error = message
	return v
}

func (h *Handlers) newResult(a *risk.Assessment) resultView {
	charts := a.Charts()
	v := resultView{
		pageView:      h.page(),
		Assessment:    a,
		Category:      string(a.Category),
		CategoryClass: "risk-" + categoryClass(a.Category),
		Bars:          newBarChart(charts.Comparison),
		Curve:         newCurveChart(charts.Curve, charts.HorizonYears, a.RiskPercentage, charts.HorizonLabel),
		ExportURL:     "/export/" + a.ID,
	}
	v.Characteristics = []characteristicView{
		{"Age", fmt.Sprintf("%d years", a.Record.Age)},
		{"Sex", a.Record.Sex.Label()},
	}
	for _, name := range ml.FlagFields() {
		v.Characteristics = append(v.Characteristics, characteristicView{flagLabels[name], yesNo(flagValue(a.Record, name))})
	}
	return v
}

func (h *Handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, "assessment not found or expired", http.StatusNotFound)
		return
	}
	now := h.now()
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(now)))
	_, _ = w.Write([]byte(report.Render(a, now)))
}

// render executes into a buffer so a template error never leaves a
// half-written page.
func (h *Handlers) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error("render page", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func categoryClass(c risk.Category) string {
	switch c {
	case risk.High:
		return "high"
	case risk.Medium:
		return "medium"
	default:
		return "low"
	}
}

func flagValue(r ml.PatientRecord, name string) bool {
	switch name {
	case ml.FieldHypertension:
		return r.Hypertension
	case ml.FieldDiabetes:
		return r.Diabetes
	case ml.FieldDyslipidemia:
		return r.Dyslipidemia
	case ml.FieldObesity:
		return r.Obesity
	case ml.FieldSmoking:
		return r.Smoking
	case ml.FieldAntiphospholipid:
		return r.Antiphospholipid
	case ml.FieldCutaneous:
		return r.Cutaneous
	case ml.FieldJoint:
		return r.Joint
	}
	return false
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
