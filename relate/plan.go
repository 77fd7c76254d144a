package relate

import (
	"slices"
	"strings"
)

// PathString is a type alias for string, holding a dot-separated relationship
// path such as "loans.book.author".
type PathString = string

const pathSeparator = "."

// Path is one relationship path of a Plan, split into its segments.
type Path []RelationshipNameString

// String joins the path segments with the dot separator.
func (p Path) String() PathString {
	return strings.Join(p, pathSeparator)
}

/***** Plan *****/

// Plan is an ordered, normalized set of relationship paths to resolve for a
// batch of root entities. Build it with BuildFetchPlan; a zero Plan resolves
// nothing.
type Plan struct {
	paths []Path
}

// Paths returns the normalized paths of the Plan.
func (p Plan) Paths() []Path {
	return p.paths
}

// IsEmpty reports whether the Plan contains no paths.
func (p Plan) IsEmpty() bool {
	return len(p.paths) == 0
}

// SegmentCount returns the number of distinct path segments, counting nested
// segments separately. This equals the maximum number of bulk fetches one
// resolution of the Plan may issue.
func (p Plan) SegmentCount() int {
	prefixes := make(map[PathString]struct{})

	for _, path := range p.paths {
		for i := range path {
			prefixes[path[:i+1].String()] = struct{}{}
		}
	}

	return len(prefixes)
}

/***** PlanBuilder *****/

// PlanBuilder builds a fetch Plan from dot-separated relationship paths.
//
// It sanitizes the input:
//   - trimming surrounding whitespace from each path
//   - removing empty paths and paths with empty segments
//   - sorting the paths
//   - removing duplicate paths
//   - removing paths that are a prefix of another path (the longer path
//     already implies resolving the shorter one)
//
// The sanitization makes resolution idempotent: a relationship path supplied
// twice never causes a duplicate fetch.
type PlanBuilder interface {
	// With adds one or multiple relationship paths to the Plan.
	With(path PathString, paths ...PathString) PlanBuilder

	// Finalize returns the normalized Plan.
	Finalize() Plan
}

type planBuilder struct {
	raw []PathString
}

// BuildFetchPlan creates a PlanBuilder which must eventually be finalized with Finalize().
func BuildFetchPlan() PlanBuilder {
	return planBuilder{}
}

// With adds one or multiple relationship paths to the Plan.
func (pb planBuilder) With(path PathString, paths ...PathString) PlanBuilder {
	pb.raw = append(pb.raw, path)
	pb.raw = append(pb.raw, paths...)

	return pb
}

// Finalize returns the normalized Plan.
func (pb planBuilder) Finalize() Plan {
	cleaned := make([]PathString, 0, len(pb.raw))

	for _, raw := range pb.raw {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		if hasEmptySegment(trimmed) {
			continue
		}

		cleaned = append(cleaned, trimmed)
	}

	slices.Sort(cleaned)
	cleaned = slices.Compact(cleaned)
	cleaned = slices.DeleteFunc(cleaned, func(candidate PathString) bool {
		return isProperPrefixOfAny(candidate, cleaned)
	})
	cleaned = slices.Clip(cleaned)

	paths := make([]Path, 0, len(cleaned))
	for _, c := range cleaned {
		paths = append(paths, Path(strings.Split(c, pathSeparator)))
	}

	return Plan{paths: paths}
}

func hasEmptySegment(path PathString) bool {
	for _, segment := range strings.Split(path, pathSeparator) {
		if strings.TrimSpace(segment) == "" {
			return true
		}
	}

	return false
}

func isProperPrefixOfAny(candidate PathString, all []PathString) bool {
	prefix := candidate + pathSeparator

	for _, other := range all {
		if other != candidate && strings.HasPrefix(other, prefix) {
			return true
		}
	}

	return false
}
