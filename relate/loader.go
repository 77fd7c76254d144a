package relate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	logMsgResolveCompleted      = "resolve completed"
	logMsgBulkFetchFailed       = "bulk fetch failed"
	logMsgBulkFetchExecuted     = "executed bulk fetch for: "
	logMsgOperation             = "loader operation: "
	logAttrError                = "error"
	logAttrEntityType           = "entity_type"
	logAttrRelationship         = "relationship"
	logAttrRootCount            = "root_count"
	logAttrFetchCount           = "fetch_count"
	logAttrEntityCount          = "entity_count"
	logAttrDurationMS           = "duration_ms"
	metricResolveDuration       = "relate_resolve_duration_seconds"
	metricBulkFetches           = "relate_bulk_fetches_total"
	metricEntitiesLoaded        = "relate_entities_loaded"
	metricResolveErrors         = "relate_resolve_errors_total"
	spanNameResolve             = "relate.resolve"
	spanAttrOperation           = "operation"
	spanAttrRootType            = "root_type"
	spanAttrRootCount           = "root_count"
	spanAttrFetchCount          = "fetch_count"
	spanAttrErrorType           = "error_type"
	spanAttrDurationMS          = "duration_ms"
	operationResolve            = "resolve"
	statusSuccess               = "success"
	statusError                 = "error"
	errorTypeStorageUnavailable = "storage_unavailable"
	errorTypeMixedTypes         = "mixed_entity_types"
	errorTypeUnknownRel         = "unknown_relationship"
	errorTypeEmptyRoots         = "empty_roots"
)

type fetchCountInt = int

// Source is the bulk-fetch contract of the storage collaborator. The Loader
// consumes only these two primitives and assumes no particular query language.
//
// FetchByIDs returns the entities of the given type matching the id set.
// FetchByParentIDs returns the entities belonging to any of the parent ids
// via the to-many relationship declared on the parent type under the given
// name, one ParentLink per match. The parent type disambiguates relationship
// names shared between parent types.
//
// Both calls must honor ctx; cancellation propagates out of Resolve as a failure.
type Source interface {
	FetchByIDs(ctx context.Context, entityType EntityTypeString, ids []EntityIDString) ([]Entity, error)
	FetchByParentIDs(ctx context.Context, parentType EntityTypeString, relationship RelationshipNameString, parentIDs []EntityIDString) ([]ParentLink, error)
}

// Loader resolves fetch Plans against root batches using the minimum number
// of bulk fetches. One Resolve call corresponds to one inbound operation and
// shares no mutable state with concurrent calls.
type Loader struct {
	source           Source
	schema           Schema
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
	strictEmptyRoots bool
	fetchChunkSize   int
}

// Option defines a functional option for configuring a Loader.
type Option func(*Loader) error

// WithLogger sets the logger for the Loader.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: individual bulk fetches with timing (development use)
// Info level: resolution summaries with fetch counts (production-safe)
// Error level: failures that cause a Resolve call to fail.
func WithLogger(logger Logger) Option {
	return func(l *Loader) error {
		l.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Loader, which
// receives the same messages as the plain logger but with context information
// for automatic trace/span correlation.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(l *Loader) error {
		l.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Loader. The collector will
// receive resolve durations, bulk-fetch counts and loaded-entity counts.
func WithMetrics(collector MetricsCollector) Option {
	return func(l *Loader) error {
		l.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Loader. The collector will
// receive one span per Resolve call with fetch-count and error attributes.
func WithTracing(collector TracingCollector) Option {
	return func(l *Loader) error {
		l.tracingCollector = collector
		return nil
	}
}

// WithStrictEmptyRoots makes Resolve fail with ErrEmptyRoots when called with
// an empty root batch. The default is to return an empty Result and issue no fetch.
func WithStrictEmptyRoots() Option {
	return func(l *Loader) error {
		l.strictEmptyRoots = true
		return nil
	}
}

// WithFetchChunkSize caps the number of ids passed to a single bulk fetch.
// A segment whose id set exceeds the cap is fetched in multiple chunks, which
// trades the one-fetch-per-segment guarantee for bounded fetch sizes.
// The default (0) is unlimited.
func WithFetchChunkSize(size int) Option {
	return func(l *Loader) error {
		if size < 0 {
			return fmt.Errorf("fetch chunk size must not be negative, got %d", size)
		}

		l.fetchChunkSize = size

		return nil
	}
}

// NewLoader creates a Loader resolving against the given Source and Schema
// with optional configuration.
func NewLoader(source Source, schema Schema, options ...Option) (Loader, error) {
	if source == nil {
		return Loader{}, ErrNilSource
	}

	l := Loader{
		source: source,
		schema: schema,
	}

	for _, option := range options {
		if err := option(&l); err != nil {
			return Loader{}, err
		}
	}

	return l, nil
}

// Resolve materializes all relationships named by the plan for the given root
// batch and returns the roots annotated with the resolved targets.
//
// The batch must contain a single entity type; the plan must only name
// relationships declared in the Schema for the types along each path. Both
// constraints are validated before any fetch is issued. For a plan with k
// distinct path segments the Loader issues at most k bulk fetches, regardless
// of the batch size (segments whose id set turns out empty are skipped).
//
// Resolve either resolves every requested segment or fails entirely; no
// partially stitched Result is ever returned. Bulk-fetch failures are not
// retried and surface wrapped in ErrStorageUnavailable.
func (l Loader) Resolve(ctx context.Context, roots []Entity, plan Plan) (Result, error) {
	var empty Result

	start := time.Now()
	tracing, ctx := l.startResolveTracing(ctx, roots)
	metrics := l.startResolveMetrics(ctx)

	if len(roots) == 0 {
		if l.strictEmptyRoots {
			tracing.finishError(errorTypeEmptyRoots, time.Since(start))
			metrics.recordError(errorTypeEmptyRoots, time.Since(start))

			return empty, ErrEmptyRoots
		}

		tracing.finishSuccess(0, time.Since(start))
		metrics.recordSuccess(0, 0, time.Since(start))

		return empty, nil
	}

	rootType, mixedErr := l.rootEntityType(roots)
	if mixedErr != nil {
		tracing.finishError(errorTypeMixedTypes, time.Since(start))
		metrics.recordError(errorTypeMixedTypes, time.Since(start))

		return empty, mixedErr
	}

	tree := buildPlanTree(plan)

	if validateErr := l.validatePlan(rootType, tree); validateErr != nil {
		l.logError(ctx, logMsgBulkFetchFailed, validateErr, logAttrEntityType, rootType)
		tracing.finishError(errorTypeUnknownRel, time.Since(start))
		metrics.recordError(errorTypeUnknownRel, time.Since(start))

		return empty, validateErr
	}

	idx := newIndex()
	for _, root := range roots {
		idx.register(root)
	}

	fetches, resolveErr := l.resolveTree(ctx, idx, tree, rootType, dedupeEntities(roots))
	if resolveErr != nil {
		tracing.finishError(errorTypeStorageUnavailable, time.Since(start))
		metrics.recordError(errorTypeStorageUnavailable, time.Since(start))

		return empty, resolveErr
	}

	duration := time.Since(start)

	l.logOperation(
		ctx,
		logMsgResolveCompleted,
		logAttrEntityType, rootType,
		logAttrRootCount, len(roots),
		logAttrFetchCount, fetches,
		logAttrDurationMS, l.toMilliseconds(duration),
	)
	tracing.finishSuccess(fetches, duration)
	metrics.recordSuccess(fetches, len(idx.entities), duration)

	return l.stitch(idx, roots), nil
}

// rootEntityType returns the single entity type of the batch, or
// ErrMixedEntityTypes when the batch mixes types.
func (l Loader) rootEntityType(roots []Entity) (EntityTypeString, error) {
	rootType := roots[0].EntityType()

	for _, root := range roots[1:] {
		if root.EntityType() != rootType {
			return "", errors.Join(
				ErrMixedEntityTypes,
				fmt.Errorf("batch contains %q and %q", rootType, root.EntityType()),
			)
		}
	}

	return rootType, nil
}

// validatePlan walks every plan path through the Schema and fails on the
// first segment naming a relationship not declared for the type at that
// position. Validation happens before any fetch is issued.
func (l Loader) validatePlan(rootType EntityTypeString, tree *planTree) error {
	return tree.walk(rootType, func(entityType EntityTypeString, segment RelationshipNameString) (EntityTypeString, error) {
		relationship, ok := l.schema.Relationship(entityType, segment)
		if !ok {
			return "", errors.Join(
				ErrUnknownRelationship,
				fmt.Errorf("entity type %q has no relationship %q", entityType, segment),
			)
		}

		return relationship.Target(), nil
	})
}

// resolveTree performs the batched breadth-first resolution: one bulk fetch
// per tree edge, with the targets of each segment becoming the source set of
// its nested segments. Returns the number of bulk fetches issued.
func (l Loader) resolveTree(
	ctx context.Context,
	idx *index,
	tree *planTree,
	rootType EntityTypeString,
	roots []Entity,
) (fetchCountInt, error) {

	fetches := 0

	type level struct {
		node       *planTree
		entityType EntityTypeString
		sources    []Entity
	}

	queue := []level{{node: tree, entityType: rootType, sources: roots}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, segment := range current.node.orderedChildren() {
			relationship, _ := l.schema.Relationship(current.entityType, segment.name)

			targets, segmentFetches, segmentErr := l.resolveSegment(ctx, idx, relationship, current.sources)
			if segmentErr != nil {
				return 0, segmentErr
			}

			fetches += segmentFetches

			queue = append(queue, level{
				node:       segment,
				entityType: relationship.Target(),
				sources:    targets,
			})
		}
	}

	return fetches, nil
}

// resolveSegment resolves one relationship for the whole source set with a
// single bulk fetch (or several when a fetch chunk size is configured) and
// records the outcome in the index.
func (l Loader) resolveSegment(
	ctx context.Context,
	idx *index,
	relationship Relationship,
	sources []Entity,
) ([]Entity, fetchCountInt, error) {

	switch relationship.Kind() {
	case KindToMany:
		return l.resolveToMany(ctx, idx, relationship, sources)
	default:
		return l.resolveToOne(ctx, idx, relationship, sources)
	}
}

func (l Loader) resolveToOne(
	ctx context.Context,
	idx *index,
	relationship Relationship,
	sources []Entity,
) ([]Entity, fetchCountInt, error) {

	ids := make([]EntityIDString, 0, len(sources))
	seen := make(map[EntityIDString]struct{}, len(sources))

	for _, source := range sources {
		id, ok := relationship.extract(source)
		if !ok {
			idx.setToOneAbsent(keyOf(source), relationship.Name())
			continue
		}

		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return nil, 0, nil
	}

	fetched, fetches, fetchErr := l.fetchByIDs(ctx, relationship.Target(), ids)
	if fetchErr != nil {
		return nil, 0, fetchErr
	}

	byID := make(map[EntityIDString]Entity, len(fetched))
	for _, entity := range fetched {
		idx.register(entity)
		byID[entity.EntityID()] = entity
	}

	for _, source := range sources {
		id, ok := relationship.extract(source)
		if !ok {
			continue
		}

		target, found := byID[id]
		if !found {
			// A dangling foreign key resolves to absent, same as null.
			idx.setToOneAbsent(keyOf(source), relationship.Name())
			continue
		}

		idx.setToOne(keyOf(source), relationship.Name(), keyOf(target))
	}

	return dedupeEntities(fetched), fetches, nil
}

func (l Loader) resolveToMany(
	ctx context.Context,
	idx *index,
	relationship Relationship,
	sources []Entity,
) ([]Entity, fetchCountInt, error) {

	parentIDs := make([]EntityIDString, 0, len(sources))
	sourceType := ""

	for _, source := range sources {
		sourceType = source.EntityType()
		idx.initToMany(keyOf(source), relationship.Name())
		parentIDs = append(parentIDs, source.EntityID())
	}

	if len(parentIDs) == 0 {
		return nil, 0, nil
	}

	links, fetches, fetchErr := l.fetchByParentIDs(ctx, sourceType, relationship, parentIDs)
	if fetchErr != nil {
		return nil, 0, fetchErr
	}

	targets := make([]Entity, 0, len(links))

	for _, link := range links {
		targetKey := idx.register(link.Entity)
		parentKey := nodeKey{entityType: sourceType, id: link.ParentID}
		idx.appendToMany(parentKey, relationship.Name(), targetKey)
		targets = append(targets, link.Entity)
	}

	return dedupeEntities(targets), fetches, nil
}

// fetchByIDs issues the bulk fetch for a to-one segment, chunked when a fetch
// chunk size is configured.
func (l Loader) fetchByIDs(
	ctx context.Context,
	entityType EntityTypeString,
	ids []EntityIDString,
) ([]Entity, fetchCountInt, error) {

	fetched := make([]Entity, 0, len(ids))
	fetches := 0

	for _, chunk := range l.chunked(ids) {
		start := time.Now()
		entities, fetchErr := l.source.FetchByIDs(ctx, entityType, chunk)
		duration := time.Since(start)
		l.logFetchWithDuration(ctx, entityType, "", len(chunk), duration)

		if fetchErr != nil {
			l.logError(ctx, logMsgBulkFetchFailed, fetchErr, logAttrEntityType, entityType)

			return nil, 0, errors.Join(ErrStorageUnavailable, fetchErr)
		}

		fetched = append(fetched, entities...)
		fetches++
	}

	return fetched, fetches, nil
}

// fetchByParentIDs issues the bulk fetch for a to-many segment, chunked when
// a fetch chunk size is configured.
func (l Loader) fetchByParentIDs(
	ctx context.Context,
	parentType EntityTypeString,
	relationship Relationship,
	parentIDs []EntityIDString,
) ([]ParentLink, fetchCountInt, error) {

	links := make([]ParentLink, 0, len(parentIDs))
	fetches := 0

	for _, chunk := range l.chunked(parentIDs) {
		start := time.Now()
		chunkLinks, fetchErr := l.source.FetchByParentIDs(ctx, parentType, relationship.Name(), chunk)
		duration := time.Since(start)
		l.logFetchWithDuration(ctx, relationship.Target(), relationship.Name(), len(chunk), duration)

		if fetchErr != nil {
			l.logError(ctx, logMsgBulkFetchFailed, fetchErr,
				logAttrEntityType, relationship.Target(),
				logAttrRelationship, relationship.Name())

			return nil, 0, errors.Join(ErrStorageUnavailable, fetchErr)
		}

		links = append(links, chunkLinks...)
		fetches++
	}

	return links, fetches, nil
}

func (l Loader) chunked(ids []EntityIDString) [][]EntityIDString {
	if l.fetchChunkSize <= 0 || len(ids) <= l.fetchChunkSize {
		return [][]EntityIDString{ids}
	}

	chunks := make([][]EntityIDString, 0, len(ids)/l.fetchChunkSize+1)
	for start := 0; start < len(ids); start += l.fetchChunkSize {
		chunks = append(chunks, ids[start:min(start+l.fetchChunkSize, len(ids))])
	}

	return chunks
}

// stitch wraps the original roots, in input order, as Nodes sharing the
// resolution's index.
func (l Loader) stitch(idx *index, roots []Entity) Result {
	nodes := make([]Node, 0, len(roots))
	for _, root := range roots {
		nodes = append(nodes, Node{entity: root, idx: idx})
	}

	return Result{roots: nodes}
}

func dedupeEntities(entities []Entity) []Entity {
	seen := make(map[nodeKey]struct{}, len(entities))
	deduped := make([]Entity, 0, len(entities))

	for _, entity := range entities {
		key := keyOf(entity)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		deduped = append(deduped, entity)
	}

	return slices.Clip(deduped)
}

/***** plan tree *****/

// planTree is the prefix tree of a Plan's paths. Each edge corresponds to one
// distinct path segment and therefore to (at most) one bulk fetch.
type planTree struct {
	name     RelationshipNameString
	children map[RelationshipNameString]*planTree
}

func buildPlanTree(plan Plan) *planTree {
	root := &planTree{children: make(map[RelationshipNameString]*planTree)}

	for _, path := range plan.Paths() {
		current := root

		for _, segment := range path {
			child, ok := current.children[segment]
			if !ok {
				child = &planTree{name: segment, children: make(map[RelationshipNameString]*planTree)}
				current.children[segment] = child
			}

			current = child
		}
	}

	return root
}

func (t *planTree) orderedChildren() []*planTree {
	names := make([]RelationshipNameString, 0, len(t.children))
	for name := range t.children {
		names = append(names, name)
	}

	slices.Sort(names)

	ordered := make([]*planTree, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, t.children[name])
	}

	return ordered
}

// walk visits every edge of the tree depth-first, threading the entity type
// returned by visit through to the nested segments.
func (t *planTree) walk(
	entityType EntityTypeString,
	visit func(EntityTypeString, RelationshipNameString) (EntityTypeString, error),
) error {

	for _, child := range t.orderedChildren() {
		targetType, err := visit(entityType, child.name)
		if err != nil {
			return err
		}

		if walkErr := child.walk(targetType, visit); walkErr != nil {
			return walkErr
		}
	}

	return nil
}
