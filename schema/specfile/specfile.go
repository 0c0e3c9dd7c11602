// Package specfile loads schema specs from YAML or JSON files.
//
// The JSON form is the one model.SchemaSpec marshals to, with nodes and marks
// given as [name, spec] pairs. YAML files may use the same pairs, or the more
// natural mapping form:
//
//	topNode: doc
//	nodes:
//	  doc:
//	    content: block+
//	  paragraph:
//	    content: inline*
//	    group: block
//	  text:
//	    group: inline
//	marks:
//	  em: {}
//
// The order of the mapping keys is kept, since it gives the precedence of
// node and mark types.
package specfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy/docshape/model"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a schema spec file.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrFormat is returned for files whose content doesn't have the expected
// shape.
var ErrFormat = errors.New("malformed schema file")

// FormatFromPath guesses the format of a file from its extension. Anything
// that is not .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads a schema spec file.
func Load(path string) (*model.SchemaSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema spec: %w", err)
	}
	spec, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// LoadSchema reads a schema spec file and compiles it.
func LoadSchema(path string) (*model.Schema, error) {
	spec, err := Load(path)
	if err != nil {
		return nil, err
	}
	return model.NewSchema(spec)
}

// Parse decodes a schema spec in the given format.
func Parse(data []byte, format Format) (*model.SchemaSpec, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}
	spec := &model.SchemaSpec{}
	if err := json.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return spec, nil
}

// yamlToJSON rewrites a YAML spec into the JSON pair form. The nodes and
// marks mappings are walked through yaml.Node to keep their order.
func yamlToJSON(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrFormat)
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: expected a mapping", ErrFormat, doc.Line)
	}

	out := map[string]interface{}{}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		switch key.Value {
		case "nodes", "marks":
			pairs, err := orderedPairs(value)
			if err != nil {
				return nil, err
			}
			out[key.Value] = pairs
		default:
			var v interface{}
			if err := value.Decode(&v); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrFormat, err)
			}
			out[key.Value] = v
		}
	}
	return json.Marshal(out)
}

func orderedPairs(node *yaml.Node) ([][2]interface{}, error) {
	switch node.Kind {
	case yaml.SequenceNode:
		var pairs [][2]interface{}
		if err := node.Decode(&pairs); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, node.Line, err)
		}
		return pairs, nil
	case yaml.MappingNode:
		pairs := make([][2]interface{}, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			name, body := node.Content[i], node.Content[i+1]
			var spec map[string]interface{}
			if err := body.Decode(&spec); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrFormat, body.Line, err)
			}
			if spec == nil {
				spec = map[string]interface{}{}
			}
			pairs = append(pairs, [2]interface{}{name.Value, spec})
		}
		return pairs, nil
	default:
		return nil, fmt.Errorf("%w: line %d: expected a mapping or a list of pairs", ErrFormat, node.Line)
	}
}
