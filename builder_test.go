package quarry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCachedCatalog builds the canonical two-function universe: mod.f carries
// a "cached" decorator, mod.g does not.
func newCachedCatalog() (*fakeCatalog, []Callable) {
	cat := newFakeCatalog()
	cat.addCallable("mod.f", &CallableSignature{
		Decorators: []Decorator{{Name: "cached"}},
	})
	cat.addCallable("mod.g", &CallableSignature{})
	callables := []Callable{
		{Name: "mod.f", Kind: TargetFunction},
		{Name: "mod.g", Kind: TargetFunction},
	}
	return cat, callables
}

func cachedQuery() Query {
	return Query{
		Name: "cached-returns",
		Kind: FunctionModel,
		Where: []Constraint{
			DecoratorNameMatches{Pattern: regexp.MustCompile(`^cached$`)},
		},
		Models: []Production{
			ReturnTaint{Taint: []TaintDirective{literalSource("UserControlled")}},
		},
	}
}

func TestApply_CachedDecoratorScenario(t *testing.T) {
	cat, callables := newCachedCatalog()
	e := New(cat, WithLogger(nil))

	models, err := e.Apply(context.Background(), []Query{cachedQuery()}, callables, nil)
	require.NoError(t, err)

	require.Len(t, models, 1)
	model, ok := models[Target{Kind: TargetFunction, Name: "mod.f"}]
	require.True(t, ok)
	assert.True(t, model.Equal(NewModel(ModelEntry{
		Port:       ReturnPort(),
		Annotation: TaintAnnotation{Direction: FlowSource, Kind: "UserControlled"},
	})))
}

func TestApply_ChunkingInvariance(t *testing.T) {
	// One hundred callables, half of them matching. Every worker count,
	// and therefore every chunking, must produce the same mapping.
	cat := newFakeCatalog()
	var callables []Callable
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("mod.fn%03d", i)
		sig := &CallableSignature{}
		if i%2 == 0 {
			sig.Decorators = []Decorator{{Name: "cached"}}
		}
		cat.addCallable(name, sig)
		callables = append(callables, Callable{Name: name, Kind: TargetFunction})
	}

	queries := []Query{cachedQuery()}
	baseline, err := New(cat, WithLogger(nil), WithWorkers(1)).
		Apply(context.Background(), queries, callables, nil)
	require.NoError(t, err)
	require.Len(t, baseline, 50)

	for _, workers := range []int{2, 3, 8, 32} {
		e := New(cat, WithLogger(nil), WithWorkers(workers))
		models, err := e.Apply(context.Background(), queries, callables, nil)
		require.NoError(t, err)
		assert.True(t, models.Equal(baseline), "workers=%d", workers)
	}
}

func TestApply_JoinsExistingMapping(t *testing.T) {
	cat, callables := newCachedCatalog()
	e := New(cat, WithLogger(nil))

	prior := ModelMap{
		{Kind: TargetFunction, Name: "mod.f"}: NewModel(ModelEntry{
			Port:       ReturnPort(),
			Annotation: TaintAnnotation{Direction: FlowSink, Kind: "Logging"},
		}),
		{Kind: TargetFunction, Name: "other.h"}: NewModel(ModelEntry{
			Port:       ReturnPort(),
			Annotation: TaintAnnotation{Direction: FlowSource, Kind: "Cookies"},
		}),
	}

	models, err := e.Apply(context.Background(), []Query{cachedQuery()}, callables, prior)
	require.NoError(t, err)

	require.Len(t, models, 2)
	assert.Len(t, models[Target{Kind: TargetFunction, Name: "mod.f"}].Entries, 2)
	assert.Len(t, models[Target{Kind: TargetFunction, Name: "other.h"}].Entries, 1)
	// The caller's mapping is untouched.
	assert.Len(t, prior[Target{Kind: TargetFunction, Name: "mod.f"}].Entries, 1)
}

func TestApply_AttributeUniverseExpansion(t *testing.T) {
	cat := newFakeCatalog()
	cat.addClass("mod.Config", nil, []string{"secret"}, []string{"token"})
	cat.addClass("mod.Other", nil, []string{"name"}, nil)
	e := New(cat, WithLogger(nil))

	q := Query{
		Name: "config-fields",
		Kind: AttributeModel,
		Where: []Constraint{
			ParentClass{Is: ClassEquals{Name: "mod.Config"}},
		},
		Models: []Production{AttributeTaint{Taint: []TaintDirective{literalSource("Credentials")}}},
	}

	models, err := e.Apply(context.Background(), []Query{q}, nil, nil)
	require.NoError(t, err)

	// Both the declared and the constructor-assigned attribute model;
	// mod.Other contributes nothing.
	require.Len(t, models, 2)
	_, ok := models[Target{Kind: TargetAttribute, Name: "mod.Config.secret"}]
	assert.True(t, ok)
	_, ok = models[Target{Kind: TargetAttribute, Name: "mod.Config.token"}]
	assert.True(t, ok)
}

func TestApply_MixedRuleKindsOneRun(t *testing.T) {
	cat, callables := newCachedCatalog()
	cat.addClass("mod.Config", nil, []string{"secret"}, nil)
	e := New(cat, WithLogger(nil))

	queries := []Query{
		cachedQuery(),
		{
			Name:   "all-attributes",
			Kind:   AttributeModel,
			Models: []Production{AttributeTaint{Taint: []TaintDirective{literalSink("Logging")}}},
		},
	}

	models, err := e.Apply(context.Background(), queries, callables, nil)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Contains(t, models, Target{Kind: TargetFunction, Name: "mod.f"})
	assert.Contains(t, models, Target{Kind: TargetAttribute, Name: "mod.Config.secret"})
}

func TestApply_VerboseRecordsMatches(t *testing.T) {
	cat, callables := newCachedCatalog()
	e := New(cat, WithLogger(nil), WithVerbose(true))

	_, err := e.Apply(context.Background(), []Query{cachedQuery()}, callables, nil)
	require.NoError(t, err)

	matches := e.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, "mod.f (function)", matches[0].Target)
	assert.Equal(t, "cached-returns", matches[0].Rule)

	// Matches reset per run.
	_, err = e.Apply(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, e.Matches())
}

type failingCatalog struct {
	*fakeCatalog
}

func (f failingCatalog) AllClasses(ctx context.Context) ([]string, error) {
	return nil, errors.New("catalog offline")
}

func TestApply_AttributeUniverseErrorIsFatal(t *testing.T) {
	e := New(failingCatalog{newFakeCatalog()}, WithLogger(nil))

	q := Query{
		Name:   "attrs",
		Kind:   AttributeModel,
		Models: []Production{AttributeTaint{Taint: []TaintDirective{literalSink("Logging")}}},
	}

	_, err := e.Apply(context.Background(), []Query{q}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attribute universe")
}

type countingScheduler struct {
	inner Scheduler
	runs  int
}

func (c *countingScheduler) Run(ctx context.Context, tasks int, mapFn func(context.Context, int) (ModelMap, error), reduce func(ModelMap, ModelMap) ModelMap) (ModelMap, error) {
	c.runs++
	return c.inner.Run(ctx, tasks, mapFn, reduce)
}

func TestWithScheduler_ReplacesDefault(t *testing.T) {
	cat, callables := newCachedCatalog()
	counting := &countingScheduler{inner: NewPoolScheduler(2)}
	e := New(cat, WithLogger(nil), WithScheduler(counting))

	_, err := e.Apply(context.Background(), []Query{cachedQuery()}, callables, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, counting.runs)
}

func TestChunkCount(t *testing.T) {
	assert.Equal(t, 0, chunkCount(0, 4))
	// Small universes stay in one chunk.
	assert.Equal(t, 1, chunkCount(10, 4))
	assert.Equal(t, 1, chunkCount(32, 4))
	// Large universes cap at chunksPerWorker per worker.
	assert.Equal(t, 16, chunkCount(10_000, 4))
}

func TestChunkBounds_CoverEveryElementOnce(t *testing.T) {
	for _, n := range []int{1, 31, 32, 33, 100, 1000} {
		chunks := chunkCount(n, 4)
		covered := 0
		prev := 0
		for task := 0; task < chunks; task++ {
			lo, hi := chunkBounds(n, chunks, task)
			assert.Equal(t, prev, lo)
			assert.LessOrEqual(t, lo, hi)
			covered += hi - lo
			prev = hi
		}
		assert.Equal(t, n, covered, "n=%d", n)
	}
}
