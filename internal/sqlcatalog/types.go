package sqlcatalog

import "encoding/json"

// Callable kinds as stored in the kind column.
const (
	KindFunction = "function"
	KindMethod   = "method"
)

// Callable is one callable record with its full signature snapshot.
type Callable struct {
	Name             string
	Kind             string // KindFunction or KindMethod
	ReturnAnnotation string
	Parameters       []Parameter
	Decorators       []Decorator
}

// Parameter is one declared parameter; its ordinal is its index in
// Callable.Parameters.
type Parameter struct {
	Name       string
	Annotation string
}

// Decorator is one decorator with its argument expressions.
type Decorator struct {
	Name      string
	Arguments []string
}

// Class is one class record with its declared parents and attributes.
type Class struct {
	Name       string
	Parents    []string
	Attributes []Attribute
}

// Attribute is one class attribute; Generated marks constructor-assigned
// attributes as opposed to own declarations.
type Attribute struct {
	Name      string
	Generated bool
}

// marshalArguments converts decorator arguments to JSON text for storage.
func marshalArguments(args []string) string {
	if len(args) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(args)
	return string(b)
}

// unmarshalArguments converts JSON text back to []string.
func unmarshalArguments(s string) []string {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var args []string
	_ = json.Unmarshal([]byte(s), &args)
	return args
}
