package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cozy/docshape/internal/logging"
	"github.com/cozy/docshape/model"
	"github.com/cozy/docshape/schema/basic"
	"github.com/cozy/docshape/schema/list"
	"github.com/cozy/docshape/schema/specfile"
	"github.com/cozy/docshape/transform"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docshape",
		Short: "docshape edits structured documents with steps",
		Long: `docshape reads documents and steps in their JSON form, applies the steps,
maps positions through them, and checks documents against a schema.

Without --schema, the basic schema with list nodes is used.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("schema", "", "Schema spec file (.yaml, .yml or .json)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log every step on stderr")

	root.AddCommand(newApplyCmd(), newMapCmd(), newValidateCmd())
	return root
}

func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return logging.New(cmd.ErrOrStderr(), level).Named(cmd.Name())
}

func defaultSchema() (*model.Schema, error) {
	spec := basic.Spec()
	spec.Nodes = list.AddListNodes(spec.Nodes, "paragraph block*", "block")
	return model.NewSchema(spec)
}

func loadSchema(cmd *cobra.Command) (*model.Schema, error) {
	path, _ := cmd.Flags().GetString("schema")
	if path == "" {
		return defaultSchema()
	}
	return specfile.LoadSchema(path)
}

// readJSON decodes a JSON file, or stdin when path is "-".
func readJSON(cmd *cobra.Command, path string, v interface{}) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func readDoc(cmd *cobra.Command, schema *model.Schema, path string) (*model.Node, error) {
	var raw interface{}
	if err := readJSON(cmd, path, &raw); err != nil {
		return nil, err
	}
	return schema.NodeFromJSON(raw)
}

func readSteps(cmd *cobra.Command, schema *model.Schema, path string) ([]transform.Step, error) {
	var raw []interface{}
	if err := readJSON(cmd, path, &raw); err != nil {
		return nil, err
	}
	return transform.StepsFromJSON(schema, raw)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
