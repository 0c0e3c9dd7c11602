package transform

import (
	"testing"

	"github.com/cozy/docshape/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkStep(from, to int, val string) Step {
	switch val {
	case "+em":
		return NewAddMarkStep(from, to, emMark)
	case "-em":
		return NewRemoveMarkStep(from, to, emMark)
	default:
		slice := model.EmptySlice
		if val != "" {
			slice = model.NewSlice(model.FragmentFrom(text(val)), 0, 0)
		}
		return NewReplaceStep(from, to, slice)
	}
}

func TestStepMerge(t *testing.T) {
	testDoc := doc(p("foobar")).Node

	yes := func(from1, to1 int, val1 string, from2, to2 int, val2 string) {
		t.Helper()
		step1 := mkStep(from1, to1, val1)
		step2 := mkStep(from2, to2, val2)
		merged, ok := step1.Merge(step2)
		if assert.True(t, ok) {
			applied1 := step1.Apply(testDoc).Doc
			applied2 := step2.Apply(applied1).Doc
			assert.True(t, merged.Apply(testDoc).Doc.Eq(applied2))
		}
	}

	no := func(from1, to1 int, val1 string, from2, to2 int, val2 string) {
		t.Helper()
		step1 := mkStep(from1, to1, val1)
		step2 := mkStep(from2, to2, val2)
		_, ok := step1.Merge(step2)
		assert.False(t, ok)
	}

	// merges typing changes
	yes(2, 2, "a", 3, 3, "b")

	// merges inverse typing
	yes(2, 2, "a", 2, 2, "b")

	// doesn't merge separated typing
	no(2, 2, "a", 4, 4, "b")

	// doesn't merge inverted separated typing
	no(3, 3, "a", 2, 2, "b")

	// merges adjacent backspaces
	yes(3, 4, "", 2, 3, "")

	// merges adjacent deletes
	yes(2, 3, "", 2, 3, "")

	// doesn't merge separate backspaces
	no(1, 2, "", 2, 3, "")

	// merges backspace and type
	yes(2, 3, "", 2, 2, "x")

	// merges longer adjacent inserts
	yes(2, 2, "quux", 6, 6, "baz")

	// merges inverted longer inserts
	yes(2, 2, "quux", 2, 2, "baz")

	// merges longer deletes
	yes(2, 5, "", 2, 4, "")

	// merges inverted longer deletes
	yes(4, 6, "", 2, 4, "")

	// merges overwrites
	yes(3, 4, "x", 4, 5, "y")

	// merges adding adjacent styles
	yes(1, 2, "+em", 2, 4, "+em")

	// merges adding overlapping styles
	yes(1, 3, "+em", 2, 4, "+em")

	// doesn't merge separate styles
	no(1, 2, "+em", 3, 4, "+em")

	// merges removing adjacent styles
	yes(1, 2, "-em", 2, 4, "-em")

	// merges removing overlapping styles
	yes(1, 3, "-em", 2, 4, "-em")

	// doesn't merge removing separate styles
	no(1, 2, "-em", 3, 4, "-em")

	// doesn't merge different kinds of steps
	no(1, 2, "+em", 1, 2, "-em")
}

func TestStepInvert(t *testing.T) {
	testDoc := doc(h1("one"), p("t", em("w"), "o"), p(img)).Node

	roundTrip := func(name string, step Step) {
		t.Run(name, func(t *testing.T) {
			result := step.Apply(testDoc)
			require.Empty(t, result.Failed)
			require.NoError(t, result.Err())
			assert.False(t, result.Doc.Eq(testDoc))

			inverted := step.Invert(testDoc).Apply(result.Doc)
			require.Empty(t, inverted.Failed)
			assert.True(t, inverted.Doc.Eq(testDoc), "got %s", inverted.Doc)
		})
	}

	roundTrip("insert", NewReplaceStep(2, 2, model.NewSlice(model.FragmentFrom(text("X")), 0, 0)))
	roundTrip("delete", NewReplaceStep(1, 3, nil))
	roundTrip("join", NewReplaceStep(4, 6, nil, true))
	roundTrip("replace around", NewReplaceAroundStep(5, 10, 6, 9,
		model.NewSlice(model.FragmentFrom(h2().Node), 0, 0), 1, true))
	roundTrip("add mark", NewAddMarkStep(1, 4, strongMark))
	roundTrip("remove mark", NewRemoveMarkStep(7, 8, emMark))
	roundTrip("add node mark", NewAddNodeMarkStep(11, emMark))
	roundTrip("set attrs", NewSetAttrsStep(0, map[string]interface{}{"level": 3.0}))
}

func TestAddMarkStep(t *testing.T) {
	start := doc(p("abc")).Node
	step := NewAddMarkStep(1, 4, strongMark)

	result := step.Apply(start)
	require.NoError(t, result.Err())
	para := result.Doc.FirstChild()
	require.Equal(t, 1, para.ChildCount())
	assert.Equal(t, "abc", para.FirstChild().Text())
	assert.True(t, strongMark.IsInSet(para.FirstChild().Marks))
	assert.True(t, result.Doc.Eq(doc(p(strong("abc"))).Node))

	restored := step.Invert(start).Apply(result.Doc)
	require.NoError(t, restored.Err())
	assert.True(t, restored.Doc.Eq(start))
}

func TestAddMarkStepRespectsParent(t *testing.T) {
	start := doc(pre("abc")).Node
	result := NewAddMarkStep(1, 4, strongMark).Apply(start)
	require.NoError(t, result.Err())
	assert.True(t, result.Doc.Eq(start))
}

func TestStepMapToNothing(t *testing.T) {
	deleted := NewStepMap([]int{1, 5, 0})

	// a range that was deleted maps to nothing
	assert.Nil(t, NewAddMarkStep(2, 4, strongMark).Map(deleted))
	assert.Nil(t, NewRemoveMarkStep(2, 4, strongMark).Map(deleted))
	assert.Nil(t, NewReplaceStep(2, 4, nil).Map(deleted))

	// an empty range maps to nothing, even when nothing changed
	assert.Nil(t, NewAddMarkStep(3, 3, strongMark).Map(EmptyStepMap))
	assert.Nil(t, NewRemoveMarkStep(4, 2, strongMark).Map(EmptyStepMap))

	// a node whose start was deleted maps to nothing
	assert.Nil(t, NewAddNodeMarkStep(2, emMark).Map(deleted))
	assert.Nil(t, NewSetAttrsStep(3, nil).Map(deleted))

	// ranges around the change are moved
	moved := NewAddMarkStep(7, 9, strongMark).Map(deleted)
	if assert.NotNil(t, moved) {
		assert.Equal(t, 2, moved.(*AddMarkStep).From)
		assert.Equal(t, 4, moved.(*AddMarkStep).To)
	}
	shrunk := NewAddMarkStep(3, 9, strongMark).Map(deleted)
	if assert.NotNil(t, shrunk) {
		assert.Equal(t, 1, shrunk.(*AddMarkStep).From)
		assert.Equal(t, 4, shrunk.(*AddMarkStep).To)
	}
}

func TestStepFailures(t *testing.T) {
	testDoc := doc(p("foo"), p(img)).Node

	result := NewAddNodeMarkStep(50, emMark).Apply(testDoc)
	assert.Equal(t, "No node at mark step's position", result.Failed)
	assert.ErrorIs(t, result.Err(), ErrStepFailed)

	// the document doesn't allow marks on its children
	result = NewAddNodeMarkStep(0, emMark).Apply(testDoc)
	assert.NotEmpty(t, result.Failed)
	assert.ErrorIs(t, result.Err(), model.ErrContent)

	result = NewReplaceStep(2, 2, model.NewSlice(model.FragmentFrom(p("x").Node), 3, 0)).Apply(testDoc)
	assert.ErrorIs(t, result.Err(), model.ErrReplace)

	result = NewReplaceStep(2, 7, nil, true).Apply(testDoc)
	assert.Equal(t, "Structure replace would overwrite content", result.Failed)

	result = NewReplaceAroundStep(0, 5, 1, 7, model.NewSlice(model.FragmentFrom(h1().Node), 0, 0), 1).Apply(testDoc)
	assert.Equal(t, "Gap is not a flat range", result.Failed)

	result = NewReplaceAroundStep(5, 8, 6, 7, model.NewSlice(model.FragmentFrom(pre().Node), 0, 0), 1).Apply(testDoc)
	assert.Equal(t, "Content does not fit in gap", result.Failed)
}

func TestStepsKeepSurrogatePairs(t *testing.T) {
	// the emoji spans positions 2 to 4
	start := doc(p("a😀b")).Node

	for _, step := range []Step{
		NewReplaceStep(3, 4, nil),
		NewReplaceStep(2, 3, nil),
		NewReplaceStep(3, 3, model.NewSlice(model.FragmentFrom(text("x")), 0, 0)),
		NewAddMarkStep(1, 3, strongMark),
	} {
		result := step.Apply(start)
		assert.ErrorIs(t, result.Err(), model.ErrRange, "%v", step.ToJSON())
		assert.Nil(t, result.Doc)
	}

	step := NewReplaceStep(2, 4, nil)
	result := step.Apply(start)
	require.NoError(t, result.Err())
	assert.Equal(t, "ab", result.Doc.TextContent())
	restored := step.Invert(start).Apply(result.Doc)
	require.NoError(t, restored.Err())
	assert.True(t, restored.Doc.Eq(start), "got %s", restored.Doc)
}
