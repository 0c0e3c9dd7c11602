package main

import (
	"fmt"
	"strconv"

	"github.com/cozy/docshape/transform"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map POS...",
		Short: "Map positions through a list of steps applied to a document",
		Long: `Applies the steps to the document and prints where each position of the
original document ends up. Steps that fail to apply are skipped and don't
move any position. Positions whose surroundings were deleted are flagged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMap,
	}
	cmd.Flags().String("doc", "-", "Document JSON file (- for stdin)")
	cmd.Flags().String("steps", "", "Steps JSON file")
	cmd.Flags().Int("assoc", 1, "Side a position sticks to when content is inserted at it (-1 or 1)")
	_ = cmd.MarkFlagRequired("steps")
	return cmd
}

func runMap(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)
	defer func() { _ = logger.Sync() }()

	schema, err := loadSchema(cmd)
	if err != nil {
		return err
	}
	docPath, _ := cmd.Flags().GetString("doc")
	stepsPath, _ := cmd.Flags().GetString("steps")
	assoc, _ := cmd.Flags().GetInt("assoc")
	if assoc != -1 && assoc != 1 {
		return fmt.Errorf("--assoc must be -1 or 1, got %d", assoc)
	}

	positions := make([]int, len(args))
	for i, arg := range args {
		pos, err := strconv.Atoi(arg)
		if err != nil || pos < 0 {
			return fmt.Errorf("invalid position %q", arg)
		}
		positions[i] = pos
	}

	doc, err := readDoc(cmd, schema, docPath)
	if err != nil {
		return err
	}
	steps, err := readSteps(cmd, schema, stepsPath)
	if err != nil {
		return err
	}
	tr := transform.New(doc, transform.WithLogger(logger))
	for _, step := range steps {
		tr.MaybeStep(step)
	}

	deleted := color.New(color.FgRed)
	out := cmd.OutOrStdout()
	for _, pos := range positions {
		result := tr.Mapping.MapResult(pos, assoc)
		if result.Deleted() {
			deleted.Fprintf(out, "%d -> %d (deleted)\n", pos, result.Pos)
		} else {
			fmt.Fprintf(out, "%d -> %d\n", pos, result.Pos)
		}
	}
	return nil
}
