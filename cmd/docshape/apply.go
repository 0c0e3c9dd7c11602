package main

import (
	"fmt"
	"os"

	"github.com/cozy/docshape/transform"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a list of steps to a document",
		Long: `Reads a document and a JSON array of steps, applies the steps in order and
prints the resulting document. Steps that fail are skipped, unless --strict
is given.`,
		Args: cobra.NoArgs,
		RunE: runApply,
	}
	cmd.Flags().String("doc", "-", "Document JSON file (- for stdin)")
	cmd.Flags().String("steps", "", "Steps JSON file")
	cmd.Flags().Bool("strict", false, "Stop at the first step that fails")
	cmd.Flags().String("undo", "", "Write the steps that revert the change to this file")
	_ = cmd.MarkFlagRequired("steps")
	return cmd
}

func runApply(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)
	defer func() { _ = logger.Sync() }()

	schema, err := loadSchema(cmd)
	if err != nil {
		return err
	}
	docPath, _ := cmd.Flags().GetString("doc")
	stepsPath, _ := cmd.Flags().GetString("steps")
	strict, _ := cmd.Flags().GetBool("strict")
	undoPath, _ := cmd.Flags().GetString("undo")

	doc, err := readDoc(cmd, schema, docPath)
	if err != nil {
		return err
	}
	steps, err := readSteps(cmd, schema, stepsPath)
	if err != nil {
		return err
	}

	tr := transform.New(doc, transform.WithLogger(logger))
	skipped := 0
	for i, step := range steps {
		if strict {
			if err := tr.Step(step); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			continue
		}
		if result := tr.MaybeStep(step); result.Failed != "" {
			logger.Warn("skipping step", zap.Int("index", i), zap.String("reason", result.Failed))
			skipped++
		}
	}

	if undoPath != "" {
		if err := writeUndo(tr, undoPath); err != nil {
			return err
		}
	}
	if err := writeJSON(cmd.OutOrStdout(), tr.Doc.ToJSON()); err != nil {
		return err
	}

	status := color.New(color.FgGreen)
	if skipped > 0 {
		status = color.New(color.FgYellow)
	}
	status.Fprintf(cmd.ErrOrStderr(), "applied %d steps, skipped %d\n", len(tr.Steps), skipped)
	return nil
}

// writeUndo writes the inverted steps of the transform, last step first.
func writeUndo(tr *transform.Transform, path string) error {
	inverted := make([]interface{}, 0, len(tr.Steps))
	for i := len(tr.Steps) - 1; i >= 0; i-- {
		inverted = append(inverted, tr.Steps[i].Invert(tr.Docs[i]).ToJSON())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, inverted); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
