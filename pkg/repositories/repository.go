package repositories

import (
	"context"

	"github.com/cfortin/slapshot/pkg/engine/types"
)

// Repository stores finished game summaries. List results omit the
// per-goal detail; Get returns the full summary including every goal.
type Repository interface {
	Close(ctx context.Context) error
	SaveGameSummary(ctx context.Context, summary types.GameSummary) error
	ListGameSummaries(ctx context.Context, limit int) ([]types.GameSummary, error)
	GetGameSummary(ctx context.Context, gameID string) (*types.GameSummary, error)
}
