package relate

import (
	"errors"
)

var ErrNilSource = errors.New("nil source supplied")
var ErrUnknownRelationship = errors.New("plan references a relationship not declared for the entity type")
var ErrMixedEntityTypes = errors.New("root batch contains mixed entity types")
var ErrStorageUnavailable = errors.New("bulk fetch failed, storage unavailable")
var ErrEmptyRoots = errors.New("empty root batch supplied")
