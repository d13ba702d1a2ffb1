package quarry

import "fmt"

// KindFilter lists the source and sink kinds declared by the host
// configuration. A synthesized annotation whose kind is undeclared fails
// model verification. A nil filter declares everything.
type KindFilter struct {
	sources map[string]bool
	sinks   map[string]bool
}

// NewKindFilter builds a filter from declared source and sink kind names.
func NewKindFilter(sources, sinks []string) *KindFilter {
	f := &KindFilter{
		sources: make(map[string]bool, len(sources)),
		sinks:   make(map[string]bool, len(sinks)),
	}
	for _, kind := range sources {
		f.sources[kind] = true
	}
	for _, kind := range sinks {
		f.sinks[kind] = true
	}
	return f
}

func (f *KindFilter) check(a TaintAnnotation) error {
	if f == nil {
		return nil
	}
	switch a.Direction {
	case FlowSource:
		if !f.sources[a.Kind] {
			return fmt.Errorf("undeclared source kind %q", a.Kind)
		}
	case FlowSink:
		if !f.sinks[a.Kind] {
			return fmt.Errorf("undeclared sink kind %q", a.Kind)
		}
	}
	return nil
}

// applyToCallable runs one rule against one callable subject: kind gate,
// then constraints, then synthesis, then verification. A nil result means
// the rule contributed nothing to this element.
func (s *session) applyToCallable(q *Query, subj Callable) []ModelEntry {
	if !q.Kind.AppliesTo(subj.Kind) {
		return nil
	}
	for _, c := range q.Where {
		if !s.matchesCallable(c, subj) {
			return nil
		}
	}
	// Constraints may pass without touching the signature (a pure name
	// match); productions always need it. Resolution miss means an empty
	// contribution, not a failure.
	sig := s.signature(subj.Name)
	if sig == nil {
		return nil
	}
	return s.verified(q, subj.Target(), s.synthesizeCallable(q.Models, sig))
}

// applyToAttribute is the attribute-subject counterpart of applyToCallable.
func (s *session) applyToAttribute(q *Query, subj AttributeSubject) []ModelEntry {
	if !q.Kind.AppliesTo(TargetAttribute) {
		return nil
	}
	for _, c := range q.Where {
		if !s.matchesAttribute(c, subj) {
			return nil
		}
	}
	return s.verified(q, subj.Target(), s.synthesizeAttribute(q.Models))
}

// verified checks every synthesized annotation against the declared-kind
// filter. One undeclared kind invalidates the whole contribution for this
// (element, rule) pair: it is logged and dropped, and the run continues.
func (s *session) verified(q *Query, target Target, entries []ModelEntry) []ModelEntry {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if err := s.declared.check(e.Annotation); err != nil {
			s.logf("dropping model for %s (rule %q): %v", target, q.Name, err)
			return nil
		}
	}
	if s.verbose {
		s.matches.Record(target.String(), q.Name)
		s.logf("%s matched rule %q", target, q.Name)
	}
	return entries
}
