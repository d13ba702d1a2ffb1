// Package quarry is a declarative model-query engine for static taint
// analysis. Given a catalog of program elements — functions, methods, and
// class attributes with their signatures, decorators, and class hierarchy —
// and a set of user-authored rules, it determines which elements each rule
// matches and synthesizes the initial taint models (source, sink, and
// parameter annotations) a downstream propagation solver consumes.
//
// # Pipeline
//
// A run has three phases:
//
//  1. Partition: rules split once by kind (function, method, attribute);
//     the callable universe is supplied by the caller, the attribute
//     universe is expanded from the catalog's classes.
//  2. Map: each universe is chunked and fanned out over a worker pool.
//     A worker owns its chunk, a session-scoped resolution cache, and a
//     local model mapping; rules apply per element with no cross-worker
//     communication.
//  3. Reduce: local mappings merge pairwise with an associative,
//     commutative, idempotent join, so the result is independent of
//     chunking and merge order.
//
// # Usage
//
// Create an Engine over a [Catalog], then apply queries:
//
//	engine := quarry.New(catalog,
//		quarry.WithDeclaredKinds(sources, sinks),
//		quarry.WithWorkers(8),
//	)
//	models, err := engine.Apply(ctx, queries, callables, nil)
//
// The result maps each element identity to its joined [Model].
// [WriteModels] serializes the mapping for diagnostics.
//
// # Rules
//
// A [Query] pairs constraints with productions. Constraints are predicates
// over one element's metadata: name and decorator patterns, annotation
// shape, and class-hierarchy tests. Productions attach taint annotations to
// positions of a matched element; parametric productions extract the
// subkind from the element's own Annotated[...] type syntax (see the
// internal pyann package).
//
// Resolution misses — callables the catalog cannot resolve, annotations
// with unexpected shapes — are routine: the affected constraint evaluates
// false or the affected directive synthesizes nothing, and the run
// continues. Only infrastructure failures and internal-consistency
// violations abort a run.
package quarry
