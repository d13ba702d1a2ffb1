package quarry

import (
	"fmt"
	"sort"
)

// TargetKind discriminates the three element kinds the engine models.
type TargetKind int

const (
	TargetFunction TargetKind = iota
	TargetMethod
	TargetAttribute
)

func (k TargetKind) String() string {
	switch k {
	case TargetFunction:
		return "function"
	case TargetMethod:
		return "method"
	case TargetAttribute:
		return "attribute"
	}
	return fmt.Sprintf("TargetKind(%d)", int(k))
}

// Target is the stable identity of one program element: its fully-qualified
// dotted name plus a kind discriminator. Targets are comparable and totally
// ordered, so they serve as map keys and join keys.
type Target struct {
	Kind TargetKind
	Name string
}

func (t Target) String() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.Kind)
}

// Less orders targets by (Kind, Name).
func (t Target) Less(o Target) bool {
	if t.Kind != o.Kind {
		return t.Kind < o.Kind
	}
	return t.Name < o.Name
}

// PortKind discriminates the positions within an element a taint annotation
// can attach to.
type PortKind int

const (
	PortReturn PortKind = iota
	PortParameter
	PortSelf
)

// Port is the position a model entry targets. Parameter ports keep the
// declared name and ordinal of the parameter — the actual structural root,
// not the sanitized matching name.
type Port struct {
	Kind  PortKind
	Index int
	Name  string
}

// ReturnPort targets the callable's return value.
func ReturnPort() Port {
	return Port{Kind: PortReturn, Index: -1}
}

// SelfPort targets the attribute subject itself.
func SelfPort() Port {
	return Port{Kind: PortSelf, Index: -1}
}

// ParameterPort targets one declared parameter.
func ParameterPort(p Parameter) Port {
	return Port{Kind: PortParameter, Index: p.Position, Name: p.Name}
}

func (p Port) String() string {
	switch p.Kind {
	case PortReturn:
		return "return"
	case PortSelf:
		return "self"
	case PortParameter:
		if p.Name != "" {
			return fmt.Sprintf("formal(%s)", p.Name)
		}
		return fmt.Sprintf("formal(%d)", p.Index)
	}
	return fmt.Sprintf("Port(%d)", int(p.Kind))
}

// FlowDirection tells a source annotation from a sink annotation.
type FlowDirection int

const (
	FlowSource FlowDirection = iota
	FlowSink
)

func (d FlowDirection) String() string {
	if d == FlowSink {
		return "sink"
	}
	return "source"
}

// TaintAnnotation is one concrete source or sink annotation. Subkind is
// non-empty only for parametric annotations, where it was extracted from the
// element's own type-annotation syntax.
type TaintAnnotation struct {
	Direction FlowDirection
	Kind      string
	Subkind   string
}

func (a TaintAnnotation) String() string {
	if a.Subkind != "" {
		return fmt.Sprintf("%s %s[%s]", a.Direction, a.Kind, a.Subkind)
	}
	return fmt.Sprintf("%s %s", a.Direction, a.Kind)
}

// ModelEntry is one (port, annotation) pair. Entries are comparable, so
// structural equality of the full annotation is plain ==.
type ModelEntry struct {
	Port       Port
	Annotation TaintAnnotation
}

// Model is the accumulated set of entries for one element. Entry order is
// first-seen order and matters only for diagnostics; equality is set
// equality.
type Model struct {
	Entries []ModelEntry
}

// NewModel builds a model from entries, deduplicating structurally equal
// ones while preserving first-seen order.
func NewModel(entries ...ModelEntry) Model {
	return Model{}.join(entries)
}

// Join returns the union of m and other. Join is associative, commutative
// up to entry order, and idempotent: structurally equal entries collapse to
// one, structurally different entries for the same port are both retained.
func (m Model) Join(other Model) Model {
	return m.join(other.Entries)
}

func (m Model) join(entries []ModelEntry) Model {
	seen := make(map[ModelEntry]bool, len(m.Entries)+len(entries))
	out := make([]ModelEntry, 0, len(m.Entries)+len(entries))
	for _, e := range m.Entries {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	for _, e := range entries {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return Model{Entries: out}
}

// Equal reports set equality of entries, ignoring order.
func (m Model) Equal(other Model) bool {
	if len(dedup(m.Entries)) != len(dedup(other.Entries)) {
		return false
	}
	seen := make(map[ModelEntry]bool, len(other.Entries))
	for _, e := range other.Entries {
		seen[e] = true
	}
	for _, e := range m.Entries {
		if !seen[e] {
			return false
		}
	}
	return true
}

func dedup(entries []ModelEntry) []ModelEntry {
	seen := make(map[ModelEntry]bool, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// ModelMap maps element identities to their joined models.
type ModelMap map[Target]Model

// Join merges other into mm, joining models on key collision, and returns mm.
func (mm ModelMap) Join(other ModelMap) ModelMap {
	for target, model := range other {
		mm[target] = mm[target].Join(model)
	}
	return mm
}

// Add joins a model delta into the model recorded for target.
func (mm ModelMap) Add(target Target, entries []ModelEntry) {
	if len(entries) == 0 {
		return
	}
	mm[target] = mm[target].join(entries)
}

// Targets returns the keys ordered by (Kind, Name).
func (mm ModelMap) Targets() []Target {
	targets := make([]Target, 0, len(mm))
	for t := range mm {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Less(targets[j]) })
	return targets
}

// Equal reports whether both maps hold the same targets with set-equal models.
func (mm ModelMap) Equal(other ModelMap) bool {
	if len(mm) != len(other) {
		return false
	}
	for target, model := range mm {
		o, ok := other[target]
		if !ok || !model.Equal(o) {
			return false
		}
	}
	return true
}
