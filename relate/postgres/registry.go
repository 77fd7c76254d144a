package postgres

import (
	"errors"
	"fmt"

	"github.com/pagekeep/pagekeep/relate"
)

var (
	// ErrIncompleteMapping occurs when a Mapping misses its table, id column or row factory.
	ErrIncompleteMapping = errors.New("table mapping must define table, id column and row factory")

	// ErrUnmappedEntityType occurs when a fetch names an entity type without a Mapping.
	ErrUnmappedEntityType = errors.New("entity type has no table mapping")

	// ErrUnmappedRelationship occurs when a to-many fetch names a relationship without a mapping.
	ErrUnmappedRelationship = errors.New("relationship has no to-many mapping")
)

// RowFactory returns a fresh entity value together with the scan destinations
// for the mapping's columns, in column order. The destinations must point
// into the returned entity.
type RowFactory func() (relate.Entity, []any)

// Mapping binds one entity type to its table.
type Mapping struct {
	Table    string
	IDColumn string
	Columns  []string
	NewRow   RowFactory
}

// ToManyMapping binds a to-many relationship declared on a parent type to the
// foreign-key column on the child table. Target names the child entity type,
// which must carry its own Mapping.
type ToManyMapping struct {
	Target   relate.EntityTypeString
	FKColumn string
}

type toManyKey struct {
	parentType   relate.EntityTypeString
	relationship relate.RelationshipNameString
}

// Registry holds the table mappings of all entity types a Source can fetch.
//
// Map and MapToMany are chainable so a registry reads like a declaration block:
//
//	registry := postgres.NewRegistry().
//		Map("author", authorMapping).
//		Map("book", bookMapping).
//		MapToMany("author", "books", postgres.ToManyMapping{Target: "book", FKColumn: "author_id"})
type Registry struct {
	mappings map[relate.EntityTypeString]Mapping
	toMany   map[toManyKey]ToManyMapping
}

// NewRegistry creates an empty Registry.
func NewRegistry() Registry {
	return Registry{
		mappings: make(map[relate.EntityTypeString]Mapping),
		toMany:   make(map[toManyKey]ToManyMapping),
	}
}

// Map binds an entity type to its table mapping, replacing any previous binding.
func (r Registry) Map(entityType relate.EntityTypeString, mapping Mapping) Registry {
	r.mappings[entityType] = mapping
	return r
}

// MapToMany binds a to-many relationship of a parent type to its child-side
// foreign-key column, replacing any previous binding.
func (r Registry) MapToMany(
	parentType relate.EntityTypeString,
	relationship relate.RelationshipNameString,
	mapping ToManyMapping,
) Registry {

	r.toMany[toManyKey{parentType: parentType, relationship: relationship}] = mapping

	return r
}

// validate checks that every mapping is complete and every to-many binding
// points at a mapped child type.
func (r Registry) validate() error {
	for entityType, mapping := range r.mappings {
		if mapping.Table == "" || mapping.IDColumn == "" || mapping.NewRow == nil || len(mapping.Columns) == 0 {
			return errors.Join(ErrIncompleteMapping, fmt.Errorf("entity type %q", entityType))
		}
	}

	for key, mapping := range r.toMany {
		if mapping.FKColumn == "" {
			return errors.Join(ErrIncompleteMapping,
				fmt.Errorf("to-many %q on %q misses its foreign-key column", key.relationship, key.parentType))
		}

		if _, ok := r.mappings[mapping.Target]; !ok {
			return errors.Join(ErrUnmappedEntityType,
				fmt.Errorf("to-many %q on %q targets unmapped type %q", key.relationship, key.parentType, mapping.Target))
		}
	}

	return nil
}
