package assignment

import (
	"github.com/okian/squad/internal/domain/rating"
	"github.com/okian/squad/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithRatingSource sets the randomness used for tie-breaking.
func WithRatingSource(src rating.Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.src = src
		}
	}
}

// WithLogger sets the logger used for debug tracing of a pass.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRefinementFactor scales the refinement attempt cap of
// groups² × targetSize.
func WithRefinementFactor(factor int) Option {
	return func(e *Engine) {
		if factor > 0 {
			e.factor = factor
		}
	}
}

// WithShuffledResult controls whether the returned groups are shuffled.
func WithShuffledResult(enabled bool) Option {
	return func(e *Engine) {
		e.shuffleResult = enabled
	}
}
