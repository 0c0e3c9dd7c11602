// Package transform implements document transforms, which are used by the
// editor to treat changes as first-class values, which can be saved, shared,
// and reasoned about.
package transform

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/cozy/docshape/model"
	"github.com/mitchellh/mapstructure"
)

var (
	// ErrStepFailed is returned by Transform.Step when a step can't be
	// applied to the current document.
	ErrStepFailed = errors.New("step failed")
	// ErrUnknownStep is returned by StepFromJSON for a stepType that has no
	// registered decoder.
	ErrUnknownStep = errors.New("unknown step type")
)

// Step objects represent an atomic change. It generally applies only to the
// document it was created for, since the positions stored in it will only make
// sense for that document.
//
// New kinds of steps are defined by implementing this interface and
// registering a decoder for their JSON tag with RegisterStep.
type Step interface {
	// Apply applies this step to the given document, returning a result
	// object that either indicates failure, if the step can not be applied
	// to this document, or indicates success by containing a transformed
	// document.
	Apply(doc *model.Node) StepResult

	// GetMap gets the step map that represents the changes made by this step,
	// and which can be used to transform between positions in the old and the
	// new document.
	GetMap() *StepMap

	// Invert creates an inverted version of this step. Needs the document as
	// it was before the step as argument.
	Invert(doc *model.Node) Step

	// Map maps this step through a mappable thing, returning either a
	// version of that step with its positions adjusted, or nil if the step
	// was entirely deleted by the mapping.
	Map(mapping Mappable) Step

	// Merge tries to merge this step with another one, to be applied directly
	// after it. Returns the merged step and true when possible.
	Merge(other Step) (Step, bool)

	// ToJSON creates a JSON-serializable representation of this step. It
	// contains a stepType property naming the decoder to use.
	ToJSON() map[string]interface{}
}

// StepResult is the result of applying a step. Contains either a new document
// or a failure value.
type StepResult struct {
	// The transformed document.
	Doc *model.Node
	// Text providing information about a failed step.
	Failed string

	cause error
}

// OK creates a successful step result.
func OK(doc *model.Node) StepResult {
	return StepResult{Doc: doc}
}

// Fail creates a failed step result.
func Fail(message string) StepResult {
	return StepResult{Failed: message}
}

func failWith(err error) StepResult {
	return StepResult{Failed: err.Error(), cause: err}
}

// FromReplace calls Node.Replace with the given arguments. Creates a
// successful result if it succeeds, and a failed one carrying the replace
// error otherwise.
func FromReplace(doc *model.Node, from, to int, slice *model.Slice) StepResult {
	replaced, err := doc.Replace(from, to, slice)
	if err != nil {
		return failWith(err)
	}
	return OK(replaced)
}

// Err returns nil for a successful result. For a failed one, the error
// matches ErrStepFailed and, when the failure came from the model, the
// model's error kind.
func (r StepResult) Err() error {
	if r.Doc != nil && r.Failed == "" {
		return nil
	}
	if r.cause != nil {
		return fmt.Errorf("%w: %w", ErrStepFailed, r.cause)
	}
	return fmt.Errorf("%w: %s", ErrStepFailed, r.Failed)
}

// StepDecoder builds a step from its JSON representation.
type StepDecoder func(schema *model.Schema, obj map[string]interface{}) (Step, error)

var registry = struct {
	sync.RWMutex
	decoders map[string]StepDecoder
}{
	decoders: map[string]StepDecoder{
		"replace":        ReplaceStepFromJSON,
		"replaceAround":  ReplaceAroundStepFromJSON,
		"addMark":        AddMarkStepFromJSON,
		"removeMark":     RemoveMarkStepFromJSON,
		"addNodeMark":    AddNodeMarkStepFromJSON,
		"removeNodeMark": RemoveNodeMarkStepFromJSON,
		"setAttrs":       SetAttrsStepFromJSON,
	},
}

// RegisterStep registers a decoder for a step type that is not built in. It
// returns an error when the tag is already taken.
func RegisterStep(stepType string, decoder StepDecoder) error {
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.decoders[stepType]; ok {
		return fmt.Errorf("duplicate use of step JSON ID %q", stepType)
	}
	registry.decoders[stepType] = decoder
	return nil
}

// StepTypes returns the registered step tags, sorted.
func StepTypes() []string {
	registry.RLock()
	defer registry.RUnlock()
	types := make([]string, 0, len(registry.decoders))
	for t := range registry.decoders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// StepFromJSON deserializes a step from its JSON representation, dispatching
// on its stepType property.
func StepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w for Step.fromJSON", model.ErrInvalidInput)
	}
	stepType, ok := obj["stepType"].(string)
	if !ok {
		return nil, fmt.Errorf("%w for Step.fromJSON", model.ErrInvalidInput)
	}
	registry.RLock()
	decoder, ok := registry.decoders[stepType]
	registry.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownStep, stepType, model.ErrInvalidInput)
	}
	return decoder(schema, obj)
}

// StepsFromJSON deserializes a list of steps.
func StepsFromJSON(schema *model.Schema, list []interface{}) ([]Step, error) {
	steps := make([]Step, 0, len(list))
	for i, raw := range list {
		obj, _ := raw.(map[string]interface{})
		step, err := StepFromJSON(schema, obj)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func invalidInput(name string) error {
	return fmt.Errorf("%w for %s.fromJSON", model.ErrInvalidInput, name)
}

// decodePayload decodes the fields of a step's JSON object into out. Numbers
// that come from encoding/json are float64, and must be integral when the
// target is an int.
func decodePayload(name string, obj map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: integralHook,
		Result:     out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(obj); err != nil {
		return fmt.Errorf("%w: %v", invalidInput(name), err)
	}
	return nil
}

func integralHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	if f, ok := data.(float64); ok && f != float64(int(f)) {
		return nil, fmt.Errorf("expected an integer, got %v", f)
	}
	return data, nil
}
