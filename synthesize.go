package quarry

import "fmt"

// synthesizeCallable converts a matched callable rule's productions into
// model entries. Reaching an attribute production here means kind gating is
// broken; that is an internal-consistency failure, not a recoverable one.
func (s *session) synthesizeCallable(productions []Production, sig *CallableSignature) []ModelEntry {
	var entries []ModelEntry
	for _, prod := range productions {
		switch prod := prod.(type) {
		case ReturnTaint:
			entries = append(entries, s.directiveEntries(prod.Taint, ReturnPort(), sig.ReturnAnnotation)...)
		case NamedParameterTaint:
			if p, ok := parameterByName(sig, prod.Name); ok {
				entries = append(entries, s.directiveEntries(prod.Taint, ParameterPort(p), p.Annotation)...)
			}
		case PositionalParameterTaint:
			if p, ok := parameterByPosition(sig, prod.Index); ok {
				entries = append(entries, s.directiveEntries(prod.Taint, ParameterPort(p), p.Annotation)...)
			}
		case AllParametersTaint:
			excluded := make(map[string]bool, len(prod.Exclude))
			for _, name := range prod.Exclude {
				excluded[name] = true
			}
			for _, p := range sig.Parameters {
				if !excluded[p.SanitizedName()] {
					entries = append(entries, s.directiveEntries(prod.Taint, ParameterPort(p), p.Annotation)...)
				}
			}
		case AttributeTaint:
			panic("quarry: attribute production reached for a callable subject")
		default:
			panic(fmt.Sprintf("quarry: unknown production %T", prod))
		}
	}
	return entries
}

// synthesizeAttribute converts a matched attribute rule's productions into
// model entries. Attribute subjects carry no annotation expression, so
// parametric directives synthesize nothing for them.
func (s *session) synthesizeAttribute(productions []Production) []ModelEntry {
	var entries []ModelEntry
	for _, prod := range productions {
		switch prod := prod.(type) {
		case AttributeTaint:
			entries = append(entries, s.directiveEntries(prod.Taint, SelfPort(), "")...)
		case ReturnTaint, NamedParameterTaint, PositionalParameterTaint, AllParametersTaint:
			panic("quarry: callable production reached for an attribute subject")
		default:
			panic(fmt.Sprintf("quarry: unknown production %T", prod))
		}
	}
	return entries
}

// directiveEntries applies a directive list at one port. annotation is the
// annotation expression declared at that port; parametric directives that
// find no matching shape in it are silently skipped.
func (s *session) directiveEntries(directives []TaintDirective, port Port, annotation string) []ModelEntry {
	var entries []ModelEntry
	for _, d := range directives {
		switch d := d.(type) {
		case LiteralTaint:
			entries = append(entries, ModelEntry{Port: port, Annotation: d.Annotation})
		case ParametricSourceFromAnnotation:
			if subkind, ok := s.parametricSubkind(annotation, d.Pattern); ok {
				entries = append(entries, ModelEntry{
					Port:       port,
					Annotation: TaintAnnotation{Direction: FlowSource, Kind: d.Kind, Subkind: subkind},
				})
			}
		case ParametricSinkFromAnnotation:
			if subkind, ok := s.parametricSubkind(annotation, d.Pattern); ok {
				entries = append(entries, ModelEntry{
					Port:       port,
					Annotation: TaintAnnotation{Direction: FlowSink, Kind: d.Kind, Subkind: subkind},
				})
			}
		default:
			panic(fmt.Sprintf("quarry: unknown taint directive %T", d))
		}
	}
	return entries
}

func (s *session) parametricSubkind(annotation, pattern string) (string, bool) {
	if annotation == "" {
		return "", false
	}
	return s.parser.ParametricSubkind(s.ctx, annotation, pattern)
}

// parameterByName finds the parameter whose sanitized name equals name.
// Zero or one parameter matches; the first declaration wins on the
// degenerate case of duplicate sanitized names.
func parameterByName(sig *CallableSignature, name string) (Parameter, bool) {
	for _, p := range sig.Parameters {
		if p.SanitizedName() == name {
			return p, true
		}
	}
	return Parameter{}, false
}

func parameterByPosition(sig *CallableSignature, index int) (Parameter, bool) {
	for _, p := range sig.Parameters {
		if p.Position == index {
			return p, true
		}
	}
	return Parameter{}, false
}
