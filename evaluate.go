package quarry

import (
	"context"
	"fmt"
	"log"

	"github.com/jward/quarry/internal/diag"
	"github.com/jward/quarry/internal/pyann"
)

// session carries the state one worker owns while applying rules to a chunk:
// the oracle handle, memoized lookups, and an annotation parser. Sessions
// are created per chunk and discarded with it, so memoization never leaks
// across batches. A session is not safe for concurrent use.
type session struct {
	ctx     context.Context
	catalog Catalog
	parser  *pyann.Parser
	logger  *log.Logger
	verbose bool

	declared *KindFilter
	matches  *diag.Collector

	// Memoized oracle lookups. A nil signature entry records an
	// unresolved name so the oracle is hit once per name per session.
	signatures map[string]*CallableSignature
	parents    map[string][]string
}

func (e *Engine) newSession(ctx context.Context) *session {
	return &session{
		ctx:        ctx,
		catalog:    e.catalog,
		parser:     pyann.NewParser(),
		logger:     e.logger,
		verbose:    e.verbose,
		declared:   e.declared,
		matches:    e.matches,
		signatures: make(map[string]*CallableSignature),
		parents:    make(map[string][]string),
	}
}

func (s *session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// signature resolves a callable through the session cache. Oracle errors
// and unresolved names both record nil: constraints referencing the
// signature evaluate to false and productions synthesize nothing.
func (s *session) signature(name string) *CallableSignature {
	if sig, ok := s.signatures[name]; ok {
		return sig
	}
	sig, err := s.catalog.ResolveCallable(s.ctx, name)
	if err != nil {
		if s.verbose {
			s.logf("resolving %s: %v", name, err)
		}
		sig = nil
	} else if sig == nil && s.verbose {
		s.logf("unresolved callable %s", name)
	}
	s.signatures[name] = sig
	return sig
}

func (s *session) immediateParents(class string) []string {
	if parents, ok := s.parents[class]; ok {
		return parents
	}
	parents, err := s.catalog.ImmediateParents(s.ctx, class)
	if err != nil {
		if s.verbose {
			s.logf("parents of %s: %v", class, err)
		}
		parents = nil
	}
	s.parents[class] = parents
	return parents
}

// matchesCallable evaluates one constraint against a callable subject.
// Total: unresolved signatures and absent annotations evaluate to false.
func (s *session) matchesCallable(c Constraint, subj Callable) bool {
	switch c := c.(type) {
	case NameMatches:
		return c.Pattern.MatchString(subj.Name)
	case DecoratorNameMatches:
		sig := s.signature(subj.Name)
		if sig == nil {
			return false
		}
		for _, d := range sig.Decorators {
			if c.Pattern.MatchString(d.Name) {
				return true
			}
		}
		return false
	case ReturnAnnotationSatisfies:
		sig := s.signature(subj.Name)
		if sig == nil || sig.ReturnAnnotation == "" {
			return false
		}
		return s.satisfies(c.Predicate, sig.ReturnAnnotation)
	case AnyParameterAnnotationSatisfies:
		sig := s.signature(subj.Name)
		if sig == nil {
			return false
		}
		for _, p := range sig.Parameters {
			if p.Annotation != "" && s.satisfies(c.Predicate, p.Annotation) {
				return true
			}
		}
		return false
	case AnyOf:
		for _, sub := range c.Of {
			if s.matchesCallable(sub, subj) {
				return true
			}
		}
		return false
	case ParentClass:
		class, ok := OwningClass(subj.Name)
		return ok && s.classSatisfies(c.Is, class)
	}
	panic(fmt.Sprintf("quarry: unknown constraint %T", c))
}

// matchesAttribute evaluates one constraint against an attribute subject.
// Constraints over callable metadata never match an attribute.
func (s *session) matchesAttribute(c Constraint, subj AttributeSubject) bool {
	switch c := c.(type) {
	case NameMatches:
		return c.Pattern.MatchString(subj.Target().Name)
	case DecoratorNameMatches:
		return false
	case ReturnAnnotationSatisfies:
		return false
	case AnyParameterAnnotationSatisfies:
		return false
	case AnyOf:
		for _, sub := range c.Of {
			if s.matchesAttribute(sub, subj) {
				return true
			}
		}
		return false
	case ParentClass:
		return s.classSatisfies(c.Is, subj.Class)
	}
	panic(fmt.Sprintf("quarry: unknown constraint %T", c))
}

func (s *session) classSatisfies(p ClassPredicate, class string) bool {
	switch p := p.(type) {
	case ClassEquals:
		return class == p.Name
	case ClassExtends:
		for _, parent := range s.immediateParents(class) {
			if parent == p.Name {
				return true
			}
		}
		return false
	case ClassMatches:
		return p.Pattern.MatchString(class)
	}
	panic(fmt.Sprintf("quarry: unknown class predicate %T", p))
}

func (s *session) satisfies(p AnnotationPredicate, annotation string) bool {
	switch p.(type) {
	case IsAnnotatedType:
		return s.parser.IsAnnotated(s.ctx, annotation)
	}
	panic(fmt.Sprintf("quarry: unknown annotation predicate %T", p))
}
