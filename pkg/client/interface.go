package client

import (
	"context"

	"github.com/resort-app/resort/pkg/types"
)

// AnalysisClient sends a bottle photo to a classification backend. A nil roi
// means the implementation uses its own default rectangle.
type AnalysisClient interface {
	Analyze(ctx context.Context, imageJPEG []byte, roi *types.NormalizedROI) (*types.AnalysisResult, error)
	Health(ctx context.Context) (*types.HealthStatus, error)
}
