// Package relate provides batched eager loading of entity relationships.
//
// Given a batch of root entities and a declarative fetch plan, the Loader
// materializes all related entities with one bulk fetch per relationship
// path segment, instead of one fetch per entity per relationship. The
// fetch count is a function of the plan shape, never of the batch size.
//
// The package defines the fundamental types used across storage engines:
// the Entity contract, the Schema of declared relationships, the fetch
// Plan, and the annotated Result returned by a resolution.
//
// Key types:
//   - Schema: declares entity types and their to-one/to-many relationships
//   - Plan: an ordered, normalized set of relationship paths to resolve
//   - Loader: resolves a Plan against a root batch using a Source
//   - Result / Node: roots annotated with their resolved relationships
//
// Common usage pattern:
//
//	plan := relate.BuildFetchPlan().
//		With("loans", "loans.book", "loans.book.author").
//		Finalize()
//
//	result, err := loader.Resolve(ctx, members, plan)
//	if err != nil {
//		// handle error
//	}
//
//	for _, node := range result.Roots() {
//		loans, _ := node.Many("loans")
//		// ...
//	}
package relate
