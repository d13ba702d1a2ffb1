package quarry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceEntry(port Port, kind string) ModelEntry {
	return ModelEntry{Port: port, Annotation: TaintAnnotation{Direction: FlowSource, Kind: kind}}
}

func sinkEntry(port Port, kind string) ModelEntry {
	return ModelEntry{Port: port, Annotation: TaintAnnotation{Direction: FlowSink, Kind: kind}}
}

func TestNewModel_DeduplicatesPreservingOrder(t *testing.T) {
	a := sourceEntry(ReturnPort(), "UserControlled")
	b := sinkEntry(ReturnPort(), "Logging")

	m := NewModel(a, b, a, b, a)
	assert.Equal(t, []ModelEntry{a, b}, m.Entries)
}

func TestModelJoin_Idempotent(t *testing.T) {
	m := NewModel(
		sourceEntry(ReturnPort(), "UserControlled"),
		sinkEntry(ParameterPort(Parameter{Position: 0, Name: "x"}), "RemoteCodeExecution"),
	)
	assert.True(t, m.Join(m).Equal(m))
}

func TestModelJoin_Commutative(t *testing.T) {
	a := NewModel(sourceEntry(ReturnPort(), "UserControlled"))
	b := NewModel(sinkEntry(ReturnPort(), "Logging"))

	assert.True(t, a.Join(b).Equal(b.Join(a)))
}

func TestModelJoin_Associative(t *testing.T) {
	a := NewModel(sourceEntry(ReturnPort(), "A"))
	b := NewModel(sourceEntry(ReturnPort(), "B"))
	c := NewModel(sinkEntry(SelfPort(), "C"))

	assert.True(t, a.Join(b).Join(c).Equal(a.Join(b.Join(c))))
}

func TestModelJoin_SamePortDifferentAnnotationsBothRetained(t *testing.T) {
	// Two structurally different annotations on the same port accumulate;
	// union never picks a winner.
	a := NewModel(sourceEntry(ReturnPort(), "UserControlled"))
	b := NewModel(sourceEntry(ReturnPort(), "Cookies"))

	joined := a.Join(b)
	require.Len(t, joined.Entries, 2)
}

func TestModelJoin_SubkindDistinguishesEntries(t *testing.T) {
	base := TaintAnnotation{Direction: FlowSource, Kind: "UserControlled"}
	sub := base
	sub.Subkind = "web"

	joined := NewModel(ModelEntry{Port: ReturnPort(), Annotation: base}).
		Join(NewModel(ModelEntry{Port: ReturnPort(), Annotation: sub}))
	assert.Len(t, joined.Entries, 2)
}

func TestModelEqual_IgnoresOrderAndDuplicates(t *testing.T) {
	a := sourceEntry(ReturnPort(), "A")
	b := sinkEntry(ReturnPort(), "B")

	assert.True(t, Model{Entries: []ModelEntry{a, b}}.Equal(Model{Entries: []ModelEntry{b, a, b}}))
	assert.False(t, Model{Entries: []ModelEntry{a}}.Equal(Model{Entries: []ModelEntry{b}}))
	assert.False(t, Model{Entries: []ModelEntry{a, b}}.Equal(Model{Entries: []ModelEntry{a}}))
}

func TestModelMapJoin_MergesOnCollision(t *testing.T) {
	target := Target{Kind: TargetFunction, Name: "mod.f"}
	a := ModelMap{target: NewModel(sourceEntry(ReturnPort(), "A"))}
	b := ModelMap{target: NewModel(sourceEntry(ReturnPort(), "B"))}

	joined := a.Join(b)
	require.Len(t, joined, 1)
	assert.Len(t, joined[target].Entries, 2)
}

func TestModelMapAdd_EmptyContributionAddsNoKey(t *testing.T) {
	mm := ModelMap{}
	mm.Add(Target{Kind: TargetFunction, Name: "mod.f"}, nil)
	assert.Empty(t, mm)
}

func TestModelMapTargets_OrderedByKindThenName(t *testing.T) {
	mm := ModelMap{
		{Kind: TargetAttribute, Name: "mod.C.x"}: NewModel(sinkEntry(SelfPort(), "S")),
		{Kind: TargetFunction, Name: "mod.b"}:    NewModel(sourceEntry(ReturnPort(), "S")),
		{Kind: TargetFunction, Name: "mod.a"}:    NewModel(sourceEntry(ReturnPort(), "S")),
		{Kind: TargetMethod, Name: "mod.C.m"}:    NewModel(sourceEntry(ReturnPort(), "S")),
	}

	targets := mm.Targets()
	require.Len(t, targets, 4)
	assert.Equal(t, "mod.a", targets[0].Name)
	assert.Equal(t, "mod.b", targets[1].Name)
	assert.Equal(t, "mod.C.m", targets[2].Name)
	assert.Equal(t, "mod.C.x", targets[3].Name)
}

func TestPortString(t *testing.T) {
	assert.Equal(t, "return", ReturnPort().String())
	assert.Equal(t, "self", SelfPort().String())
	assert.Equal(t, "formal(x)", ParameterPort(Parameter{Position: 2, Name: "x"}).String())
	assert.Equal(t, "formal(2)", Port{Kind: PortParameter, Index: 2}.String())
}

func TestTaintAnnotationString(t *testing.T) {
	assert.Equal(t, "source UserControlled",
		TaintAnnotation{Direction: FlowSource, Kind: "UserControlled"}.String())
	assert.Equal(t, "sink Taint[web]",
		TaintAnnotation{Direction: FlowSink, Kind: "Taint", Subkind: "web"}.String())
}
