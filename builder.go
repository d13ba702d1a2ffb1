package quarry

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"

	"github.com/jward/quarry/internal/diag"
	"github.com/jward/quarry/internal/sched"
)

// Scheduler is the parallel map-reduce primitive the builder runs on. Run
// applies mapFn to every task index and reduces the partial mappings
// pairwise with reduce; reduce must be associative and commutative. A
// mapFn error is fatal to the run.
type Scheduler interface {
	Run(ctx context.Context, tasks int, mapFn func(ctx context.Context, task int) (ModelMap, error), reduce func(ModelMap, ModelMap) ModelMap) (ModelMap, error)
}

type poolScheduler struct {
	workers int
}

// NewPoolScheduler returns a Scheduler backed by a bounded worker pool.
// workers < 1 means one worker per CPU.
func NewPoolScheduler(workers int) Scheduler {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return poolScheduler{workers: workers}
}

func (p poolScheduler) Run(ctx context.Context, tasks int, mapFn func(ctx context.Context, task int) (ModelMap, error), reduce func(ModelMap, ModelMap) ModelMap) (ModelMap, error) {
	return sched.Run(ctx, p.workers, tasks, mapFn, reduce)
}

// Chunking policy: enough chunks that no chunk falls below minChunkSize
// elements, capped at chunksPerWorker chunks per worker. Results are
// chunking-independent; these constants only balance scheduling overhead
// against stragglers.
const (
	minChunkSize    = 32
	chunksPerWorker = 4
)

func chunkCount(n, workers int) int {
	if n == 0 {
		return 0
	}
	chunks := n / minChunkSize
	if chunks < 1 {
		chunks = 1
	}
	chunks = min(chunks, workers*chunksPerWorker, n)
	return chunks
}

// chunkBounds returns the half-open element range of one chunk.
func chunkBounds(n, chunks, task int) (int, int) {
	size := (n + chunks - 1) / chunks
	lo := min(task*size, n)
	hi := min(lo+size, n)
	return lo, hi
}

// Engine applies model queries to an element catalog and builds the final
// per-element model mapping for the downstream taint solver.
type Engine struct {
	catalog  Catalog
	sched    Scheduler
	workers  int
	verbose  bool
	logger   *log.Logger
	declared *KindFilter
	matches  *diag.Collector
}

// Option configures an Engine.
type Option func(*Engine)

// WithScheduler replaces the default pool-backed map-reduce primitive.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithWorkers sets the worker count for the default scheduler and the
// chunking policy. Values below 1 mean one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// WithVerbose enables per-match diagnostic records.
func WithVerbose(verbose bool) Option {
	return func(e *Engine) { e.verbose = verbose }
}

// WithLogger replaces the default stderr logger. A nil logger silences
// diagnostics entirely.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithDeclaredKinds restricts synthesized models to the declared source and
// sink kinds; contributions referencing undeclared kinds are dropped with a
// diagnostic. Without this option every kind is accepted.
func WithDeclaredKinds(sources, sinks []string) Option {
	return func(e *Engine) { e.declared = NewKindFilter(sources, sinks) }
}

// New creates an Engine over the given catalog.
func New(catalog Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		workers: runtime.NumCPU(),
		logger:  log.New(os.Stderr, "quarry: ", log.LstdFlags),
		matches: diag.NewCollector(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sched == nil {
		e.sched = NewPoolScheduler(e.workers)
	}
	return e
}

// Matches returns the verbose match records from the most recent Apply.
func (e *Engine) Matches() []diag.Match {
	return e.matches.Matches()
}

// Apply runs every query against every element and returns the joined
// model mapping. callables is the callable universe under analysis; the
// attribute universe is expanded from the catalog's classes. existing is an
// optional pre-existing mapping joined into the result, supporting
// incremental re-runs; it is not mutated.
func (e *Engine) Apply(ctx context.Context, queries []Query, callables []Callable, existing ModelMap) (ModelMap, error) {
	e.matches.Reset()

	// Partition rules once, upfront, by kind.
	var callableRules, attributeRules []Query
	for _, q := range queries {
		if q.Kind == AttributeModel {
			attributeRules = append(attributeRules, q)
		} else {
			callableRules = append(callableRules, q)
		}
	}

	final := ModelMap{}.Join(existing)

	if len(callableRules) > 0 && len(callables) > 0 {
		mapped, err := e.mapReduce(ctx, len(callables), func(s *session, i int, local ModelMap) {
			subj := callables[i]
			for qi := range callableRules {
				local.Add(subj.Target(), s.applyToCallable(&callableRules[qi], subj))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("quarry: callable models: %w", err)
		}
		final.Join(mapped)
	}

	if len(attributeRules) > 0 {
		attributes, err := e.attributeUniverse(ctx)
		if err != nil {
			return nil, fmt.Errorf("quarry: attribute universe: %w", err)
		}
		if len(attributes) > 0 {
			mapped, err := e.mapReduce(ctx, len(attributes), func(s *session, i int, local ModelMap) {
				subj := attributes[i]
				for qi := range attributeRules {
					local.Add(subj.Target(), s.applyToAttribute(&attributeRules[qi], subj))
				}
			})
			if err != nil {
				return nil, fmt.Errorf("quarry: attribute models: %w", err)
			}
			// Callable and attribute key spaces are disjoint by
			// construction; this join cannot collide.
			final.Join(mapped)
		}
	}

	return final, nil
}

// mapReduce chunks a universe of n elements and runs applyOne for each
// element of each chunk on the scheduler. Each chunk task owns a fresh
// session and a local mapping; local mappings reduce pairwise with Join.
func (e *Engine) mapReduce(ctx context.Context, n int, applyOne func(s *session, i int, local ModelMap)) (ModelMap, error) {
	chunks := chunkCount(n, e.workers)
	return e.sched.Run(ctx, chunks,
		func(ctx context.Context, task int) (ModelMap, error) {
			lo, hi := chunkBounds(n, chunks, task)
			s := e.newSession(ctx)
			local := ModelMap{}
			for i := lo; i < hi; i++ {
				applyOne(s, i, local)
			}
			return local, nil
		},
		func(a, b ModelMap) ModelMap { return a.Join(b) },
	)
}

// attributeUniverse expands the attribute-subject universe: every attribute
// name of every declared class, own and constructor-assigned unioned.
func (e *Engine) attributeUniverse(ctx context.Context) ([]AttributeSubject, error) {
	classes, err := e.catalog.AllClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing classes: %w", err)
	}
	var subjects []AttributeSubject
	for _, class := range classes {
		names, err := e.catalog.AttributeNames(ctx, class, true)
		if err != nil {
			return nil, fmt.Errorf("attributes of %s: %w", class, err)
		}
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)
		for _, name := range sorted {
			subjects = append(subjects, AttributeSubject{Class: class, Attribute: name})
		}
	}
	return subjects, nil
}
