package pipeline

import (
	"context"

	"github.com/ppiankov/cxrsect/internal/model"
)

// Labeler consumes selected report text downstream of the shards (mention
// extraction, negation detection, label aggregation). No implementation ships
// with cxrsect; shards are the contract.
type Labeler interface {
	Label(ctx context.Context, rows []model.Selection) (map[string][]float64, error)
}
