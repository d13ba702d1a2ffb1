package quarry

import (
	"fmt"
	"regexp"
)

// RuleKind tells which element kind a query produces models for.
type RuleKind int

const (
	FunctionModel RuleKind = iota
	MethodModel
	AttributeModel
)

func (k RuleKind) String() string {
	switch k {
	case FunctionModel:
		return "function"
	case MethodModel:
		return "method"
	case AttributeModel:
		return "attribute"
	}
	return fmt.Sprintf("RuleKind(%d)", int(k))
}

// AppliesTo reports whether the rule kind covers the element kind.
func (k RuleKind) AppliesTo(t TargetKind) bool {
	switch k {
	case FunctionModel:
		return t == TargetFunction
	case MethodModel:
		return t == TargetMethod
	case AttributeModel:
		return t == TargetAttribute
	}
	return false
}

// Query is one user-authored rule: elements of the rule's kind that satisfy
// every constraint receive the models the productions synthesize. Name is
// used only in diagnostics.
type Query struct {
	Name   string
	Kind   RuleKind
	Where  []Constraint // logical AND; empty is vacuously true
	Models []Production
}

// Constraint is the closed sum of predicates over one element's metadata.
// Evaluation is a pure function of (constraint, element, catalog); the
// evaluator switches exhaustively and panics on an unknown case, so adding
// a case here breaks loudly until every match site is updated.
type Constraint interface{ constraint() }

// NameMatches searches (not full-matches) the element's externally-visible
// dotted name. Patterns are compiled once at query-load time.
type NameMatches struct{ Pattern *regexp.Regexp }

// DecoratorNameMatches holds when at least one decorator's resolved name
// matches. Elements with no decorators, and non-callables, never match.
type DecoratorNameMatches struct{ Pattern *regexp.Regexp }

// ReturnAnnotationSatisfies applies an annotation predicate to the return
// annotation; absent annotations never match.
type ReturnAnnotationSatisfies struct{ Predicate AnnotationPredicate }

// AnyParameterAnnotationSatisfies holds when any declared parameter's
// annotation satisfies the predicate (existential, not universal).
type AnyParameterAnnotationSatisfies struct{ Predicate AnnotationPredicate }

// AnyOf holds when at least one sub-constraint holds; empty matches nothing.
type AnyOf struct{ Of []Constraint }

// ParentClass applies a class predicate to the element's owning class.
type ParentClass struct{ Is ClassPredicate }

func (NameMatches) constraint()                     {}
func (DecoratorNameMatches) constraint()            {}
func (ReturnAnnotationSatisfies) constraint()       {}
func (AnyParameterAnnotationSatisfies) constraint() {}
func (AnyOf) constraint()                           {}
func (ParentClass) constraint()                     {}

// ClassPredicate is the closed sum of owning-class tests.
type ClassPredicate interface{ classPredicate() }

// ClassEquals requires the owning class name to equal Name exactly.
type ClassEquals struct{ Name string }

// ClassExtends requires Name among the owning class's immediate parents.
type ClassExtends struct{ Name string }

// ClassMatches requires the owning class name to match the pattern.
type ClassMatches struct{ Pattern *regexp.Regexp }

func (ClassEquals) classPredicate()  {}
func (ClassExtends) classPredicate() {}
func (ClassMatches) classPredicate() {}

// AnnotationPredicate is the closed sum of structural tests on a type
// annotation. Presently one case; the evaluator's exhaustive switch keeps
// extensions honest.
type AnnotationPredicate interface{ annotationPredicate() }

// IsAnnotatedType holds for Annotated[...] wrapper annotations.
type IsAnnotatedType struct{}

func (IsAnnotatedType) annotationPredicate() {}

// Production is the closed sum of model directives a matched element
// receives. AttributeTaint is valid only under AttributeModel rules; the
// other cases only under callable rules. Kind gating in the applicator
// keeps the mismatched branches unreachable.
type Production interface{ production() }

// ReturnTaint attaches directives to the return value.
type ReturnTaint struct{ Taint []TaintDirective }

// NamedParameterTaint attaches directives to the parameter whose sanitized
// name equals Name; zero matches contribute nothing.
type NamedParameterTaint struct {
	Name  string
	Taint []TaintDirective
}

// PositionalParameterTaint attaches directives to the parameter at Index;
// out-of-range indexes contribute nothing.
type PositionalParameterTaint struct {
	Index int
	Taint []TaintDirective
}

// AllParametersTaint attaches directives to every parameter whose sanitized
// name is not excluded. An empty exclude list excludes nothing.
type AllParametersTaint struct {
	Exclude []string
	Taint   []TaintDirective
}

// AttributeTaint attaches directives to the attribute subject itself.
type AttributeTaint struct{ Taint []TaintDirective }

func (ReturnTaint) production()              {}
func (NamedParameterTaint) production()      {}
func (PositionalParameterTaint) production() {}
func (AllParametersTaint) production()       {}
func (AttributeTaint) production()           {}

// TaintDirective is the closed sum of taint payloads a production carries.
type TaintDirective interface{ taintDirective() }

// LiteralTaint passes a fixed annotation through unchanged.
type LiteralTaint struct{ Annotation TaintAnnotation }

// ParametricSourceFromAnnotation synthesizes a source of the given Kind
// whose subkind is extracted from the target's own annotation when it has
// the exact shape Annotated[T, Pattern(subkind)]. Any other shape yields
// nothing for that target.
type ParametricSourceFromAnnotation struct {
	Pattern string
	Kind    string
}

// ParametricSinkFromAnnotation is the sink counterpart of
// ParametricSourceFromAnnotation.
type ParametricSinkFromAnnotation struct {
	Pattern string
	Kind    string
}

func (LiteralTaint) taintDirective()                   {}
func (ParametricSourceFromAnnotation) taintDirective() {}
func (ParametricSinkFromAnnotation) taintDirective()   {}
