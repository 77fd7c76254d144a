package relate

// EntityTypeString is a type alias for string, naming an entity type declared in a Schema.
type EntityTypeString = string

// EntityIDString is a type alias for string, holding the unique identifier of an entity.
type EntityIDString = string

// Entity is the contract every loadable object must satisfy.
//
// It is built on scalars to be completely agnostic of how the client code
// models its domain objects. Implementations are treated as immutable
// snapshots for the duration of one plan resolution; the Loader never
// mutates them.
type Entity interface {
	EntityType() EntityTypeString
	EntityID() EntityIDString
}

// ParentLink pairs a fetched child entity with the id of the parent it
// belongs to. Storage engines return one link per (parent, child) match
// of a to-many relationship.
type ParentLink struct {
	ParentID EntityIDString
	Entity   Entity
}
