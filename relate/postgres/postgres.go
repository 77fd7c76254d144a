package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/pagekeep/pagekeep/relate"
	"github.com/pagekeep/pagekeep/relate/postgres/internal/adapters"
)

const (
	dialectPostgres              = "postgres"
	castText                     = "?::text"
	aliasParentID                = "parent_id"
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgRowIterationFailed     = "database row iteration failed"
	logMsgSQLExecuted            = "executed sql for: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrEntityType            = "entity_type"
	logAttrRelationship          = "relationship"
	logAttrDurationMS            = "duration_ms"
)

// ErrNilDatabaseConnection occurs when a constructor receives a nil connection.
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")

type sqlQueryString = string

// Source is a PostgreSQL-backed implementation of relate.Source. It builds one
// IN-list query per bulk fetch and scans rows through the Registry's row
// factories. A Source is safe for concurrent use.
type Source struct {
	db               adapters.DBAdapter
	registry         Registry
	logger           relate.Logger
	contextualLogger relate.ContextualLogger
}

// NewSourceFromPGXPool creates a new Source using a pgx pool with optional configuration.
func NewSourceFromPGXPool(pool *pgxpool.Pool, registry Registry, options ...Option) (*Source, error) {
	if pool == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSource(adapters.NewPGXAdapter(pool), registry, options...)
}

// NewSourceFromPGXPoolWithReplica creates a new Source using a primary pgx pool
// and a replica pool for read operations, with optional configuration.
func NewSourceFromPGXPoolWithReplica(
	primary *pgxpool.Pool,
	replica *pgxpool.Pool,
	registry Registry,
	options ...Option,
) (*Source, error) {

	if primary == nil || replica == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSource(adapters.NewPGXAdapterWithReplica(primary, replica), registry, options...)
}

// NewSourceFromSQLDB creates a new Source using a sql.DB with optional configuration.
func NewSourceFromSQLDB(db *sql.DB, registry Registry, options ...Option) (*Source, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSource(adapters.NewSQLAdapter(db), registry, options...)
}

// NewSourceFromSQLX creates a new Source using a sqlx.DB with optional configuration.
func NewSourceFromSQLX(db *sqlx.DB, registry Registry, options ...Option) (*Source, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newSource(adapters.NewSQLXAdapter(db), registry, options...)
}

func newSource(db adapters.DBAdapter, registry Registry, options ...Option) (*Source, error) {
	if validateErr := registry.validate(); validateErr != nil {
		return nil, validateErr
	}

	s := &Source{
		db:       db,
		registry: registry,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FetchByIDs returns the entities of the given type matching the id set,
// fetched with a single IN-list query.
func (s *Source) FetchByIDs(
	ctx context.Context,
	entityType relate.EntityTypeString,
	ids []relate.EntityIDString,
) ([]relate.Entity, error) {

	if len(ids) == 0 {
		return []relate.Entity{}, nil
	}

	mapping, ok := s.registry.mappings[entityType]
	if !ok {
		return nil, errors.Join(ErrUnmappedEntityType, fmt.Errorf("entity type %q", entityType))
	}

	query, buildErr := s.buildSelectByIDs(mapping, ids)
	if buildErr != nil {
		s.logError(ctx, logMsgBuildSelectQueryFailed, buildErr, logAttrEntityType, entityType)
		return nil, buildErr
	}

	rows, queryErr := s.query(ctx, entityType, query)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(ctx, rows)

	fetched := make([]relate.Entity, 0, len(ids))

	for rows.Next() {
		entity, dests := mapping.NewRow()
		if scanErr := rows.Scan(dests...); scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, scanErr, logAttrEntityType, entityType)
			return nil, fmt.Errorf("%s: %w", logMsgScanRowFailed, scanErr)
		}

		fetched = append(fetched, entity)
	}

	// An iteration error ends Next silently; without this check a dropped
	// connection would surface as a successful partial result.
	if iterErr := rows.Err(); iterErr != nil {
		s.logError(ctx, logMsgRowIterationFailed, iterErr, logAttrEntityType, entityType)
		return nil, fmt.Errorf("%s: %w", logMsgRowIterationFailed, iterErr)
	}

	return fetched, nil
}

// FetchByParentIDs returns the child entities of a to-many relationship for
// the given parent id set, one ParentLink per match, fetched with a single
// query filtered on the child table's foreign-key column.
func (s *Source) FetchByParentIDs(
	ctx context.Context,
	parentType relate.EntityTypeString,
	relationship relate.RelationshipNameString,
	parentIDs []relate.EntityIDString,
) ([]relate.ParentLink, error) {

	if len(parentIDs) == 0 {
		return []relate.ParentLink{}, nil
	}

	toMany, ok := s.registry.toMany[toManyKey{parentType: parentType, relationship: relationship}]
	if !ok {
		return nil, errors.Join(ErrUnmappedRelationship,
			fmt.Errorf("type %q has no to-many mapping %q", parentType, relationship))
	}

	child := s.registry.mappings[toMany.Target] // existence checked by registry.validate

	query, buildErr := s.buildSelectByParentIDs(child, toMany, parentIDs)
	if buildErr != nil {
		s.logError(ctx, logMsgBuildSelectQueryFailed, buildErr,
			logAttrEntityType, parentType, logAttrRelationship, relationship)

		return nil, buildErr
	}

	rows, queryErr := s.query(ctx, toMany.Target, query)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(ctx, rows)

	links := make([]relate.ParentLink, 0, len(parentIDs))

	for rows.Next() {
		entity, dests := child.NewRow()

		var parentID string
		dests = append(dests, &parentID)

		if scanErr := rows.Scan(dests...); scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, scanErr,
				logAttrEntityType, toMany.Target, logAttrRelationship, relationship)

			return nil, fmt.Errorf("%s: %w", logMsgScanRowFailed, scanErr)
		}

		links = append(links, relate.ParentLink{ParentID: parentID, Entity: entity})
	}

	if iterErr := rows.Err(); iterErr != nil {
		s.logError(ctx, logMsgRowIterationFailed, iterErr,
			logAttrEntityType, toMany.Target, logAttrRelationship, relationship)

		return nil, fmt.Errorf("%s: %w", logMsgRowIterationFailed, iterErr)
	}

	return links, nil
}

// buildSelectByIDs builds the IN-list select for a fetch-by-ids call, ordered
// by the id column for deterministic results.
func (s *Source) buildSelectByIDs(mapping Mapping, ids []relate.EntityIDString) (sqlQueryString, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From(mapping.Table).
		Select(columnExpressions(mapping.Columns)...).
		Where(goqu.C(mapping.IDColumn).In(idValues(ids))).
		Order(goqu.I(mapping.IDColumn).Asc())

	query, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return "", fmt.Errorf("%s: %w", logMsgBuildSelectQueryFailed, toSQLErr)
	}

	return query, nil
}

// buildSelectByParentIDs builds the select for a to-many fetch. The child's
// columns are selected in mapping order with the foreign key appended as text,
// so scan destinations line up with the row factory plus one parent-id slot.
func (s *Source) buildSelectByParentIDs(
	child Mapping,
	toMany ToManyMapping,
	parentIDs []relate.EntityIDString,
) (sqlQueryString, error) {

	selected := columnExpressions(child.Columns)
	selected = append(selected, goqu.L(castText, goqu.C(toMany.FKColumn)).As(aliasParentID))

	stmt := goqu.Dialect(dialectPostgres).
		From(child.Table).
		Select(selected...).
		Where(goqu.C(toMany.FKColumn).In(idValues(parentIDs))).
		Order(goqu.I(child.IDColumn).Asc())

	query, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return "", fmt.Errorf("%s: %w", logMsgBuildSelectQueryFailed, toSQLErr)
	}

	return query, nil
}

// query executes a built statement with debug timing.
func (s *Source) query(ctx context.Context, entityType relate.EntityTypeString, query sqlQueryString) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := s.db.Query(ctx, query)
	duration := time.Since(start)

	s.logSQLWithDuration(ctx, logMsgSQLExecuted+entityType, query, duration)

	if queryErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrEntityType, entityType, logAttrQuery, query)
		return nil, fmt.Errorf("%s: %w", logMsgDBQueryFailed, queryErr)
	}

	return rows, nil
}

func (s *Source) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}

		if s.contextualLogger != nil {
			s.contextualLogger.WarnContext(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// logSQLWithDuration logs SQL queries with execution time at debug level.
func (s *Source) logSQLWithDuration(ctx context.Context, msg string, query sqlQueryString, duration time.Duration) {
	durationMS := math.Round(float64(duration.Nanoseconds())/1e6*1000) / 1000

	if s.logger != nil {
		s.logger.Debug(msg, logAttrQuery, query, logAttrDurationMS, durationMS)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, msg, logAttrQuery, query, logAttrDurationMS, durationMS)
	}
}

// logError logs error information at the error level if a logger is configured.
func (s *Source) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

func columnExpressions(columns []string) []any {
	expressions := make([]any, 0, len(columns))
	for _, column := range columns {
		expressions = append(expressions, goqu.C(column))
	}

	return expressions
}

func idValues(ids []relate.EntityIDString) []any {
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}

	return values
}
