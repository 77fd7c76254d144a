package relate

// RelationshipNameString is a type alias for string, naming a relationship declared on an entity type.
type RelationshipNameString = string

// RelationshipKind discriminates between to-one and to-many relationships.
type RelationshipKind int

const (
	// KindToOne links a source entity to at most one target entity via a foreign key.
	KindToOne RelationshipKind = iota + 1

	// KindToMany links a source entity to a set of target entities, resolved
	// reverse by fetching targets filtered by the set of source (parent) ids.
	KindToMany
)

// ToOneExtractor reads the foreign-key value of a to-one relationship from a
// source entity. The second return value is false when the foreign key is
// null, in which case the relationship resolves to absent (not an error).
type ToOneExtractor func(Entity) (EntityIDString, bool)

// Relationship describes one named relationship declared on an entity type.
type Relationship struct {
	name    RelationshipNameString
	target  EntityTypeString
	kind    RelationshipKind
	extract ToOneExtractor
}

// ToOne declares a to-one relationship from the declaring type to target,
// with extract reading the foreign key from a source entity.
func ToOne(name RelationshipNameString, target EntityTypeString, extract ToOneExtractor) Relationship {
	return Relationship{name: name, target: target, kind: KindToOne, extract: extract}
}

// ToMany declares a to-many relationship from the declaring type to target.
// The storage Source is responsible for filtering targets by parent ids.
func ToMany(name RelationshipNameString, target EntityTypeString) Relationship {
	return Relationship{name: name, target: target, kind: KindToMany}
}

func (r Relationship) Name() RelationshipNameString { return r.name }

func (r Relationship) Target() EntityTypeString { return r.target }

func (r Relationship) Kind() RelationshipKind { return r.kind }

// Schema holds the relationship declarations of all entity types known to a
// Loader. It is built once at startup and read-only afterwards, so it is safe
// for concurrent use by any number of in-flight resolutions.
type Schema struct {
	types map[EntityTypeString]map[RelationshipNameString]Relationship
}

// NewSchema creates an empty Schema.
func NewSchema() Schema {
	return Schema{types: make(map[EntityTypeString]map[RelationshipNameString]Relationship)}
}

// Declare registers an entity type with its relationships and returns the
// Schema for chaining. Declaring the same type twice merges the relationship
// sets; a relationship with an empty name or empty target is dropped, and a
// to-one relationship without an extractor is dropped as well.
func (s Schema) Declare(entityType EntityTypeString, relationships ...Relationship) Schema {
	if entityType == "" {
		return s
	}

	declared, ok := s.types[entityType]
	if !ok {
		declared = make(map[RelationshipNameString]Relationship)
		s.types[entityType] = declared
	}

	for _, relationship := range relationships {
		if relationship.name == "" || relationship.target == "" {
			continue
		}

		if relationship.kind == KindToOne && relationship.extract == nil {
			continue
		}

		declared[relationship.name] = relationship
	}

	return s
}

// HasType reports whether entityType was declared.
func (s Schema) HasType(entityType EntityTypeString) bool {
	_, ok := s.types[entityType]
	return ok
}

// Relationship looks up a declared relationship by entity type and name.
func (s Schema) Relationship(entityType EntityTypeString, name RelationshipNameString) (Relationship, bool) {
	declared, ok := s.types[entityType]
	if !ok {
		return Relationship{}, false
	}

	relationship, ok := declared[name]

	return relationship, ok
}
