package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"cvrisk/ml"
	"cvrisk/report"
	"cvrisk/risk"
)

type evaluateOptions struct {
	*rootOptions
	modelOverrides
	age        int
	sex        string
	flags      map[string]*bool
	exportPath string
}

var (
	lowColor    = color.New(color.FgGreen, color.Bold)
	mediumColor = color.New(color.FgYellow, color.Bold)
	highColor   = color.New(color.FgRed, color.Bold)
)

var flagUsage = map[string]string{
	ml.FieldHypertension:     "Hypertension",
	ml.FieldDiabetes:         "Diabetes mellitus",
	ml.FieldDyslipidemia:     "Dyslipidemia",
	ml.FieldObesity:          "BMI ≥25",
	ml.FieldSmoking:          "Smoking (current or past)",
	ml.FieldAntiphospholipid: "Antiphospholipid antibodies",
	ml.FieldCutaneous:        "Inaugural cutaneous signs",
	ml.FieldJoint:            "Inaugural joint involvement",
}

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	opts := &evaluateOptions{rootOptions: root, flags: make(map[string]*bool)}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compute the 5-year cardiovascular event risk for one patient.",
		Example: `  cvrisk evaluate --age 52 --sex male --hypertension --smoking
  cvrisk evaluate --age 35 --sex female --antiphospholipid --export result.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.age, "age", 35, "Age at diagnosis in years (18-90)")
	cmd.Flags().StringVar(&opts.sex, "sex", string(ml.Female), "Sex: female or male")
	for _, name := range ml.FlagFields() {
		opts.flags[name] = cmd.Flags().Bool(name, false, flagUsage[name])
	}
	cmd.Flags().StringVar(&opts.exportPath, "export", "", "Write the plain-text report to this path")
	opts.modelOverrides.bindTo(cmd)
	return cmd
}

func runEvaluate(cmd *cobra.Command, opts *evaluateOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	evaluator, err := opts.evaluator(cfg)
	if err != nil {
		return err
	}

	raw := ml.RawRecord{Age: strconv.Itoa(opts.age), Sex: opts.sex, Flags: make(map[string]string)}
	for name, v := range opts.flags {
		raw.Flags[name] = strconv.FormatBool(*v)
	}
	record, err := ml.Preprocess(raw)
	if err != nil {
		return err
	}

	a, err := evaluator.Evaluate(cmd.Context(), record)
	if err != nil {
		return err
	}
	if err := printAssessment(cmd.OutOrStdout(), a); err != nil {
		return err
	}

	if opts.exportPath != "" {
		if err := os.WriteFile(opts.exportPath, []byte(report.Render(a, time.Now())), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote report to %s\n", opts.exportPath)
	}
	return nil
}

func printAssessment(w io.Writer, a *risk.Assessment) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Field", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	rows := [][]string{
		{"Age", fmt.Sprintf("%d years", a.Record.Age)},
		{"Sex", a.Record.Sex.Label()},
	}
	for _, name := range ml.FlagFields() {
		rows = append(rows, []string{flagUsage[name], yesNo(recordFlag(a.Record, name))})
	}
	rows = append(rows,
		[]string{"5-Year CV Event Risk", fmt.Sprintf("%.1f%%", a.RiskPercentage)},
		[]string{"Risk Category", colorCategory(a.Category)},
		[]string{"Model", a.Model.Name},
	)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func colorCategory(c risk.Category) string {
	switch c {
	case risk.High:
		return highColor.Sprint(c)
	case risk.Medium:
		return mediumColor.Sprint(c)
	default:
		return lowColor.Sprint(c)
	}
}

func recordFlag(r ml.PatientRecord, name string) bool {
	return map[string]bool{
		ml.FieldHypertension:     r.Hypertension,
		ml.FieldDiabetes:         r.Diabetes,
		ml.FieldDyslipidemia:     r.Dyslipidemia,
		ml.FieldObesity:          r.Obesity,
		ml.FieldSmoking:          r.Smoking,
		ml.FieldAntiphospholipid: r.Antiphospholipid,
		ml.FieldCutaneous:        r.Cutaneous,
		ml.FieldJoint:            r.Joint,
	}[name]
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
