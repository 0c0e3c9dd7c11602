package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a document against the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := loadSchema(cmd)
			if err != nil {
				return err
			}
			docPath, _ := cmd.Flags().GetString("doc")
			doc, err := readDoc(cmd, schema, docPath)
			if err == nil {
				err = doc.Check()
			}
			if err != nil {
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "invalid document: %v\n", err)
				return fmt.Errorf("%s is not valid", docPath)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s is valid (%d positions)\n", docPath, doc.Content.Size)
			return nil
		},
	}
	cmd.Flags().String("doc", "-", "Document JSON file (- for stdin)")
	return cmd
}
