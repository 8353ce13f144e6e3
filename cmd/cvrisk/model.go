package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"cvrisk/config"
	"cvrisk/ml"
	"cvrisk/risk"
)

// modelOverrides lets a command point at a different artifact than the
// config file names.
type modelOverrides struct {
	modelType string
	modelPath string
}

func (o *modelOverrides) bindTo(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.modelType, "model-type", "", "Override ml.model_type (coxph or survival_forest)")
	cmd.Flags().StringVar(&o.modelPath, "model", "", "Override ml.model_path")
}

func (o *modelOverrides) apply(cfg config.MLConfig) config.MLConfig {
	if o.modelType != "" {
		cfg.ModelType = o.modelType
	}
	if o.modelPath != "" {
		cfg.ModelPath = o.modelPath
	}
	return cfg
}

func (o *modelOverrides) evaluator(cfg *config.Config) (*risk.Evaluator, error) {
	mlCfg := o.apply(cfg.ML)
	model, err := ml.LoadModel(mlCfg.ModelType, mlCfg.ModelPath)
	if err != nil {
		return nil, err
	}
	return risk.NewEvaluator(model, risk.WithHorizon(mlCfg.HorizonDays)), nil
}

type modelOptions struct {
	*rootOptions
	modelOverrides
}

func newModelCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect the survival model artifact.",
	}
	cmd.AddCommand(newModelInspectCmd(root))
	return cmd
}

func newModelInspectCmd(root *rootOptions) *cobra.Command {
	opts := &modelOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show model metadata, artifact checksum and a reference prediction.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runModelInspect(cmd, opts.apply(cfg.ML))
		},
	}
	opts.bindTo(cmd)
	return cmd
}

// referencePatient is a 35-year-old woman with no risk factors, the form's
// default, used as a sanity check of the artifact.
var referencePatient = ml.PatientRecord{Age: 35, Sex: ml.Female}

func runModelInspect(cmd *cobra.Command, cfg config.MLConfig) error {
	info, err := ml.ArtifactInfo(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ml.ErrModelUnavailable, err)
	}
	model, err := ml.LoadModel(cfg.ModelType, cfg.ModelPath)
	if err != nil {
		return err
	}
	a, err := risk.NewEvaluator(model, risk.WithHorizon(cfg.HorizonDays)).Evaluate(cmd.Context(), referencePatient)
	if err != nil {
		return err
	}
	return printModel(cmd.OutOrStdout(), model.Metadata(), info, a)
}

func printModel(w io.Writer, meta ml.ModelMetadata, info ml.Artifact, a *risk.Assessment) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Property", "Value"})
	rows := [][]string{
		{"Name", meta.Name},
		{"Type", meta.Type},
		{"Cohort", meta.Cohort},
		{"Patients", fmt.Sprint(meta.Patients)},
		{"C-index", fmt.Sprintf("%.2f", meta.CIndex)},
		{"Brier score", fmt.Sprintf("%.3f", meta.Brier)},
		{"Reference", meta.Reference},
		{"Artifact", info.Path},
		{"Size", fmt.Sprintf("%d bytes", info.Size)},
		{"SHA-256", info.SHA256},
		{"Modified", info.Modified.Format("2006-01-02 15:04:05")},
		{"Horizon", fmt.Sprintf("%.2f days (grid point %.2f)", a.HorizonDays, a.HorizonTime)},
		{"Reference patient risk", fmt.Sprintf("%.1f%% %s", a.RiskPercentage, a.Category)},
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
