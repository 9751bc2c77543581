// Package completion fills the free seats of a partially staffed group so that
// the group's total rating lands inside a requested range, or as close to it
// as the candidate pool allows.
package completion

import (
	"context"
	"time"

	"github.com/okian/squad/internal/domain/collection"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/rating"
	"github.com/okian/squad/pkg/logger"
	"github.com/okian/squad/pkg/metrics"
)

// Option configures an Engine.
type Option func(*Engine)

// WithRatingSource sets the randomness used for the initial draw.
func WithRatingSource(src rating.Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.src = src
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine selects participants to complete a group.
type Engine struct {
	src rating.Source
	log logger.Logger
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		src: rating.NewDefaultSource(),
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Range is an inclusive target interval for a group's total rating.
type Range struct {
	Min int
	Max int
}

// Contains reports whether total lies inside r.
func (r Range) Contains(total int) bool { return r.Min <= total && total <= r.Max }

// Distance returns how far total lies outside r, 0 when inside.
func (r Range) Distance(total int) int {
	switch {
	case total < r.Min:
		return r.Min - total
	case total > r.Max:
		return total - r.Max
	default:
		return 0
	}
}

// closer reports whether total a is a better fit for r than total b: nearer
// to the range, then nearer to its midpoint.
func (r Range) closer(a, b int) bool {
	da, db := r.Distance(a), r.Distance(b)
	if da != db {
		return da < db
	}
	return abs(2*a-r.Min-r.Max) < abs(2*b-r.Min-r.Max)
}

// Complete picks group.Missing() participants from candidates.
//
// A random draw is returned unchanged when it already lands the group total
// in [minTotal, maxTotal]. Otherwise each remaining candidate is tried in
// place of every selected one; the first swap that lands in range wins, and
// failing that the best improving swap per candidate is kept. When no swap
// reaches the range the closest selection found is returned without error.
//
// Neither candidates nor group is modified.
func (e *Engine) Complete(ctx context.Context, candidates []*model.Participant, group *model.Group, minTotal, maxTotal int) ([]*model.Participant, error) {
	start := time.Now()
	selection, inRange, err := e.complete(ctx, candidates, group, Range{Min: minTotal, Max: maxTotal})
	metrics.RecordEngineLatency(metrics.EngineComplete, metrics.Since(start))
	switch {
	case err != nil:
		if code, ok := CodeOf(err); ok {
			metrics.RecordCompletion(code.String())
		}
		return nil, err
	case inRange:
		metrics.RecordCompletion(metrics.OutcomeInRange)
	default:
		metrics.RecordCompletion(metrics.OutcomeClosest)
	}
	return selection, nil
}

func (e *Engine) complete(ctx context.Context, candidates []*model.Participant, group *model.Group, target Range) ([]*model.Participant, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := validate(candidates, group, target); err != nil {
		return nil, false, err
	}

	activity := group.Activity()
	selection, alternates := e.draw(candidates, group.Missing())
	base := group.Rating()
	total := base + model.TotalRating(selection, activity)
	if target.Contains(total) {
		e.log.Debug(ctx, "initial draw in range", logger.Int("total", total))
		return selection, true, nil
	}

	for _, alt := range alternates {
		gain := alt.Rating(activity)
		best, bestTotal := -1, total
		for i, member := range selection {
			candidate := total - member.Rating(activity) + gain
			if target.Contains(candidate) {
				selection[i] = alt
				e.log.Debug(ctx, "swap landed in range",
					logger.String("in", alt.Tag),
					logger.String("out", member.Tag),
					logger.Int("total", candidate),
				)
				return selection, true, nil
			}
			if target.closer(candidate, bestTotal) {
				best, bestTotal = i, candidate
			}
		}
		if best >= 0 {
			selection[best] = alt
			total = bestTotal
		}
	}

	e.log.Debug(ctx, "range not reachable",
		logger.Int("total", total),
		logger.Int("min", target.Min),
		logger.Int("max", target.Max),
		logger.Int("distance", target.Distance(total)),
	)
	return selection, false, nil
}

// validate runs the checks in their reporting order.
func validate(candidates []*model.Participant, group *model.Group, target Range) error {
	fail := func(code Code) error { return &Error{Op: "validate", Code: code} }
	switch {
	case target.Min < 0 || target.Max < 0:
		return fail(NegativeRange)
	case target.Min > target.Max:
		return fail(InvertedRange)
	case group == nil:
		return fail(MissingGroup)
	case group.Missing() < 1:
		return fail(AlreadyFull)
	case model.HasDuplicates(candidates):
		return fail(DuplicateParticipants)
	}
	for _, c := range candidates {
		if group.IsMember(c) {
			return fail(CandidateAlreadyMember)
		}
	}
	if len(candidates) <= group.Missing() {
		return fail(InsufficientCandidates)
	}
	if !model.AllRated(candidates, group.Activity()) {
		return fail(IncompleteRatings)
	}
	return nil
}

// draw takes n candidates uniformly at random without replacement. The rest
// keep their input order as alternates.
func (e *Engine) draw(candidates []*model.Participant, n int) (selection, alternates []*model.Participant) {
	alternates = append([]*model.Participant(nil), candidates...)
	selection = make([]*model.Participant, 0, n)
	for range n {
		i := rating.Intn(e.src, len(alternates))
		selection = append(selection, alternates[i])
		alternates = collection.RemoveAt(alternates, i)
	}
	return selection, alternates
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
