package quarry

import (
	"context"
	"strings"
)

// Callable names one callable element under analysis. Kind is
// TargetFunction or TargetMethod.
type Callable struct {
	Name string
	Kind TargetKind
}

func (c Callable) Target() Target {
	return Target{Kind: c.Kind, Name: c.Name}
}

// AttributeSubject is one class attribute under analysis. It carries no
// signature, only the owning class for hierarchy constraints.
type AttributeSubject struct {
	Class     string
	Attribute string
}

func (a AttributeSubject) Target() Target {
	return Target{Kind: TargetAttribute, Name: a.Class + "." + a.Attribute}
}

// Parameter is one declared parameter of a callable.
type Parameter struct {
	Position   int
	Name       string
	Annotation string // annotation expression text; empty when unannotated
}

// SanitizedName strips the synthetic markers the front-end leaves on
// parameter names: variadic stars and the positional-only double-underscore
// prefix. Productions match by sanitized name; the model key keeps the
// declared name and ordinal untouched.
func (p Parameter) SanitizedName() string {
	name := strings.TrimLeft(p.Name, "*")
	return strings.TrimPrefix(name, "__")
}

// Decorator is one decorator applied to a callable: its resolved name and
// the argument expressions it was called with, if any.
type Decorator struct {
	Name      string
	Arguments []string
}

// CallableSignature is the snapshot the catalog resolves for a callable.
type CallableSignature struct {
	Parameters       []Parameter
	ReturnAnnotation string
	Decorators       []Decorator
}

// Catalog is the read-only type-resolution oracle the engine consumes.
// Implementations must be safe for concurrent use: workers issue lookups
// without synchronizing with each other, and a lookup may trigger on-demand
// computation that blocks the calling worker.
type Catalog interface {
	// ResolveCallable returns the signature for a callable name, or
	// (nil, nil) when the name cannot be resolved. Unresolved names are
	// routine, not errors; an error signals infrastructure failure.
	ResolveCallable(ctx context.Context, name string) (*CallableSignature, error)

	// ImmediateParents returns the declared direct parents of a class.
	// Extension constraints are immediate-only, never transitive.
	ImmediateParents(ctx context.Context, class string) ([]string, error)

	// AllClasses enumerates every declared class name.
	AllClasses(ctx context.Context) ([]string, error)

	// AttributeNames returns the attribute names declared on a class.
	// With includeGenerated, constructor-assigned attributes are unioned
	// in; a name present in both streams yields one entry.
	AttributeNames(ctx context.Context, class string, includeGenerated bool) (map[string]bool, error)
}

// OwningClass returns the lexical class prefix of a dotted element name.
func OwningClass(name string) (string, bool) {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return "", false
	}
	return name[:i], true
}
