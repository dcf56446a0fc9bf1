package query

import (
	"context"

	"github.com/rpggio/recordbase/internal/domain/entry"
)

// Searcher executes compiled plans.
type Searcher interface {
	// Search returns the records matching plan, sorted and paginated.
	Search(ctx context.Context, plan Plan) ([]entry.Record, error)
	// Count returns the number of records matching plan, ignoring pagination.
	Count(ctx context.Context, plan Plan) (int, error)
}
