package specfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cozy/docshape/model"
	"github.com/cozy/docshape/schema/basic"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asJSON(t *testing.T, spec *model.SchemaSpec) interface{} {
	t.Helper()
	data, err := json.Marshal(spec)
	require.NoError(t, err)
	var v interface{}
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func TestLoadYAMLMapping(t *testing.T) {
	spec, err := Load("testdata/basic.yaml")
	require.NoError(t, err)

	if diff := cmp.Diff(asJSON(t, basic.Spec()), asJSON(t, spec)); diff != "" {
		t.Errorf("basic.yaml differs from the basic schema (-want +got):\n%s", diff)
	}

	var keys []string
	for _, n := range spec.Nodes {
		keys = append(keys, n.Key)
	}
	assert.Equal(t, []string{
		"doc", "paragraph", "blockquote", "horizontal_rule", "heading",
		"code_block", "text", "image", "hard_break",
	}, keys)

	schema, err := model.NewSchema(spec)
	require.NoError(t, err)
	image, err := schema.NodeType("image")
	require.NoError(t, err)
	_, err = image.Create(nil, nil, nil)
	assert.ErrorIs(t, err, model.ErrSchema, "src has no default")
	img, err := image.Create(map[string]interface{}{"src": "a.png"}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, img.Attrs["alt"])
	assert.Contains(t, img.Attrs, "alt")
}

func TestYAMLAndJSONAgree(t *testing.T) {
	fromYAML, err := Load("testdata/notes.yaml")
	require.NoError(t, err)
	fromJSON, err := Load("testdata/notes.json")
	require.NoError(t, err)

	assert.Equal(t, "note", fromYAML.TopNode)
	if diff := cmp.Diff(asJSON(t, fromJSON), asJSON(t, fromYAML)); diff != "" {
		t.Errorf("YAML and JSON specs differ (-json +yaml):\n%s", diff)
	}

	schema, err := LoadSchema("testdata/notes.yaml")
	require.NoError(t, err)
	assert.Equal(t, "note", schema.TopNodeType.Name)

	raw := map[string]interface{}{
		"type": "note",
		"content": []interface{}{
			map[string]interface{}{"type": "title", "content": []interface{}{
				map[string]interface{}{"type": "text", "text": "Groceries"},
			}},
			map[string]interface{}{"type": "paragraph", "content": []interface{}{
				map[string]interface{}{"type": "text", "text": "eggs", "marks": []interface{}{
					map[string]interface{}{"type": "highlight"},
				}},
			}},
		},
	}
	doc, err := schema.NodeFromJSON(raw)
	require.NoError(t, err)
	assert.NoError(t, doc.Check())
	assert.Equal(t, "yellow", doc.MaybeChild(1).FirstChild().Marks[0].Attrs["color"])
}

func TestSpecRoundTripsThroughJSONFile(t *testing.T) {
	data, err := json.Marshal(basic.Spec())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "basic.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(asJSON(t, basic.Spec()), asJSON(t, spec)))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("schema.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("schema.yml"))
	assert.Equal(t, FormatYAML, FormatFromPath("schema"))
}

func TestParseErrors(t *testing.T) {
	bad := func(input string, format Format) {
		t.Helper()
		_, err := Parse([]byte(input), format)
		assert.True(t, errors.Is(err, ErrFormat), "%q: %v", input, err)
	}

	bad("", FormatYAML)
	bad("- just\n- a list\n", FormatYAML)
	bad("nodes: doc\n", FormatYAML)
	bad("nodes:\n  doc: [1, 2]\n", FormatYAML)
	bad("nodes: [\n", FormatYAML)
	bad(`{"nodes": {"doc": {}}}`, FormatJSON)

	_, err := Load("testdata/missing.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
