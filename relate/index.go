package relate

// nodeKey identifies one entity within a single resolution.
type nodeKey struct {
	entityType EntityTypeString
	id         EntityIDString
}

func keyOf(entity Entity) nodeKey {
	return nodeKey{entityType: entity.EntityType(), id: entity.EntityID()}
}

// toOneEntry records the outcome of resolving a to-one relationship for one
// source entity. present is false when the foreign key was null or dangling,
// which resolves to absent rather than an error.
type toOneEntry struct {
	key     nodeKey
	present bool
}

// index is the RelationshipIndex of one resolution: a mapping from
// (source entity, relationship name) to the resolved target(s). It is local
// to a single Resolve call, never persisted, and rebuilt per request.
type index struct {
	entities map[nodeKey]Entity
	toOne    map[nodeKey]map[RelationshipNameString]toOneEntry
	toMany   map[nodeKey]map[RelationshipNameString][]nodeKey
}

func newIndex() *index {
	return &index{
		entities: make(map[nodeKey]Entity),
		toOne:    make(map[nodeKey]map[RelationshipNameString]toOneEntry),
		toMany:   make(map[nodeKey]map[RelationshipNameString][]nodeKey),
	}
}

// register stores an entity under its key. The first entity registered for a
// key wins, so every occurrence of the same target shares one value.
func (idx *index) register(entity Entity) nodeKey {
	key := keyOf(entity)
	if _, ok := idx.entities[key]; !ok {
		idx.entities[key] = entity
	}

	return key
}

func (idx *index) setToOne(source nodeKey, relationship RelationshipNameString, target nodeKey) {
	entries, ok := idx.toOne[source]
	if !ok {
		entries = make(map[RelationshipNameString]toOneEntry)
		idx.toOne[source] = entries
	}

	entries[relationship] = toOneEntry{key: target, present: true}
}

func (idx *index) setToOneAbsent(source nodeKey, relationship RelationshipNameString) {
	entries, ok := idx.toOne[source]
	if !ok {
		entries = make(map[RelationshipNameString]toOneEntry)
		idx.toOne[source] = entries
	}

	entries[relationship] = toOneEntry{}
}

// initToMany marks the relationship as resolved with an empty target set, so
// that "no children" is distinguishable from "not resolved".
func (idx *index) initToMany(source nodeKey, relationship RelationshipNameString) {
	entries, ok := idx.toMany[source]
	if !ok {
		entries = make(map[RelationshipNameString][]nodeKey)
		idx.toMany[source] = entries
	}

	if _, ok := entries[relationship]; !ok {
		entries[relationship] = []nodeKey{}
	}
}

func (idx *index) appendToMany(source nodeKey, relationship RelationshipNameString, target nodeKey) {
	idx.initToMany(source, relationship)
	idx.toMany[source][relationship] = append(idx.toMany[source][relationship], target)
}

/***** Result *****/

// Result is the annotated output of one Resolve call: the original roots
// wrapped in Node values exposing their resolved relationships. The caller's
// input entities are never mutated.
type Result struct {
	roots []Node
}

// Roots returns the annotated root nodes in input order.
func (r Result) Roots() []Node {
	return r.roots
}

// Len returns the number of roots.
func (r Result) Len() int {
	return len(r.roots)
}

/***** Node *****/

// Node is one entity annotated with its resolved relationships. The zero Node
// is empty and reports every relationship as unresolved.
type Node struct {
	entity Entity
	idx    *index
}

// NodeOf wraps a bare entity in a Node with no resolved relationships.
func NodeOf(entity Entity) Node {
	return Node{entity: entity}
}

// Entity returns the wrapped entity.
func (n Node) Entity() Entity {
	return n.entity
}

// One returns the resolved target of a to-one relationship. The second return
// value is false when the relationship was not part of the plan or resolved
// to absent (null foreign key).
func (n Node) One(relationship RelationshipNameString) (Node, bool) {
	if n.idx == nil || n.entity == nil {
		return Node{}, false
	}

	entry, ok := n.idx.toOne[keyOf(n.entity)][relationship]
	if !ok || !entry.present {
		return Node{}, false
	}

	return Node{entity: n.idx.entities[entry.key], idx: n.idx}, true
}

// Many returns the resolved targets of a to-many relationship. The second
// return value is false when the relationship was not resolved; a resolved
// relationship with zero matches returns an empty, non-nil slice and true.
func (n Node) Many(relationship RelationshipNameString) ([]Node, bool) {
	if n.idx == nil || n.entity == nil {
		return nil, false
	}

	keys, ok := n.idx.toMany[keyOf(n.entity)][relationship]
	if !ok {
		return nil, false
	}

	nodes := make([]Node, 0, len(keys))
	for _, key := range keys {
		nodes = append(nodes, Node{entity: n.idx.entities[key], idx: n.idx})
	}

	return nodes, true
}

// Resolved reports whether the relationship was resolved for this node,
// regardless of whether any target was found.
func (n Node) Resolved(relationship RelationshipNameString) bool {
	if n.idx == nil || n.entity == nil {
		return false
	}

	key := keyOf(n.entity)

	if _, ok := n.idx.toOne[key][relationship]; ok {
		return true
	}

	_, ok := n.idx.toMany[key][relationship]

	return ok
}
