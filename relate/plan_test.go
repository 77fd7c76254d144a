package relate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagekeep/pagekeep/relate"
)

func Test_PlanBuilder_ValidCombinations(t *testing.T) {
	tests := []struct {
		name     string
		build    func() relate.Plan
		validate func(t *testing.T, plan relate.Plan)
	}{
		{
			name: "empty_builder_creates_empty_plan",
			build: func() relate.Plan {
				return relate.BuildFetchPlan().Finalize()
			},
			validate: func(t *testing.T, p relate.Plan) {
				assert.True(t, p.IsEmpty())
				assert.Equal(t, 0, p.SegmentCount())
			},
		},
		{
			name: "single_path",
			build: func() relate.Plan {
				return relate.BuildFetchPlan().With("author").Finalize()
			},
			validate: func(t *testing.T, p relate.Plan) {
				assert.Len(t, p.Paths(), 1)
				assert.Equal(t, "author", p.Paths()[0].String())
				assert.Equal(t, 1, p.SegmentCount())
			},
		},
		{
			name: "nested_path_counts_each_segment",
			build: func() relate.Plan {
				return relate.BuildFetchPlan().With("loans.book.author").Finalize()
			},
			validate: func(t *testing.T, p relate.Plan) {
				assert.Len(t, p.Paths(), 1)
				assert.Equal(t, relate.Path{"loans", "book", "author"}, p.Paths()[0])
				assert.Equal(t, 3, p.SegmentCount())
			},
		},
		{
			name: "duplicate_paths_are_removed",
			build: func() relate.Plan {
				return relate.BuildFetchPlan().
					With("author").
					With("author", "author").
					Finalize()
			},
			validate: func(t *testing.T, p relate.Plan) {
				assert.Len(t, p.Paths(), 1)
				assert.Equal(t, 1, p.SegmentCount())
			},
		},
		{
			name: "prefix_paths_are_subsumed_by_longer_paths",
			build: func() relate.Plan {
				return relate.BuildFetchPlan().
					With("loans", "loans.book", "loans.book.author").
					Finalize()
			},
			validate: func(t *testing.T, p relate.Plan) {
				assert.Len(t, p.Paths(), 1)
				assert.Equal(t, "loans.book.author", p.Paths()[0].String())
				assert.Equal(t, 3, p.SegmentCount())
			},
		},
		{
			name: "sibling_paths_share_the_common_segment",
			build: func() relate.Plan {
				return relate.BuildFetchPlan().
					With("loans.book", "loans.member").
					Finalize()
			},
			validate: func(t *testing.T, p relate.Plan) {
				assert.Len(t, p.Paths(), 2)
				assert.Equal(t, 3, p.SegmentCount())
			},
		},
		{
			name: "empty_and_whitespace_paths_are_dropped",
			build: func() relate.Plan {
				return relate.BuildFetchPlan().
					With("", "  ", "author").
					Finalize()
			},
			validate: func(t *testing.T, p relate.Plan) {
				assert.Len(t, p.Paths(), 1)
				assert.Equal(t, "author", p.Paths()[0].String())
			},
		},
		{
			name: "paths_with_empty_segments_are_dropped",
			build: func() relate.Plan {
				return relate.BuildFetchPlan().
					With("loans..book", ".author", "loans.").
					Finalize()
			},
			validate: func(t *testing.T, p relate.Plan) {
				assert.True(t, p.IsEmpty())
			},
		},
		{
			name: "paths_are_sorted",
			build: func() relate.Plan {
				return relate.BuildFetchPlan().
					With("member", "book.author").
					Finalize()
			},
			validate: func(t *testing.T, p relate.Plan) {
				assert.Len(t, p.Paths(), 2)
				assert.Equal(t, "book.author", p.Paths()[0].String())
				assert.Equal(t, "member", p.Paths()[1].String())
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan := tc.build()
			tc.validate(t, plan)
		})
	}
}
