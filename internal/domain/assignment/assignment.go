// Package assignment partitions a pool of rated participants into groups of a
// fixed size whose total ratings are as close to equal as possible.
//
// The pool is ordered by rating (ties shuffled), dealt out in snake order and
// then refined by pairwise member swaps until no swap narrows a gap or the
// attempt cap is reached. The result is a heuristic, not an optimal partition.
package assignment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/squad/internal/domain/collection"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/rating"
	"github.com/okian/squad/pkg/logger"
	"github.com/okian/squad/pkg/metrics"
)

// DefaultRefinementFactor multiplies the groups² × targetSize attempt cap.
const DefaultRefinementFactor = 2

// Engine assigns participants to balanced groups. An Engine holds no state
// between calls besides its configuration and may be reused, but callers must
// not run it concurrently with a Source that is not safe for concurrent use.
type Engine struct {
	src           rating.Source
	log           logger.Logger
	factor        int
	shuffleResult bool
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		src:           rating.NewDefaultSource(),
		log:           logger.Nop(),
		factor:        DefaultRefinementFactor,
		shuffleResult: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assign builds balanced groups of targetSize from participants for activity.
//
// Every full group holds exactly targetSize primary members. When the pool is
// not a multiple of targetSize, one additional group holds the remainder.
// The input slice and its participants are never modified.
func (e *Engine) Assign(ctx context.Context, participants []*model.Participant, targetSize int, activity model.Activity) ([]*model.Group, error) {
	start := time.Now()
	groups, err := e.assign(ctx, participants, targetSize, activity)
	metrics.RecordEngineLatency(metrics.EngineAssign, metrics.Since(start))
	if err != nil {
		if code, ok := CodeOf(err); ok {
			metrics.RecordAssignment(code.String())
		}
		return nil, err
	}
	metrics.RecordAssignment(metrics.OutcomeOK)
	metrics.RecordGroupsCreated(len(groups))
	return groups, nil
}

func (e *Engine) assign(ctx context.Context, participants []*model.Participant, targetSize int, activity model.Activity) ([]*model.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(participants, targetSize, activity); err != nil {
		return nil, err
	}

	ordered := e.order(participants, activity)
	full, overflow := deal(ordered, targetSize, activity)

	refined := full
	if overflow.CurrentSize() > 0 {
		pad(overflow, average(ordered, activity))
		refined = append(refined, overflow)
	}

	swaps, attempts := e.refine(ctx, refined, e.attemptCap(len(refined), targetSize))
	overflow.ClearReserve()
	gap := maxGap(full)
	metrics.RecordRefinement(swaps, attempts, gap)

	e.log.Debug(ctx, "groups assigned",
		logger.String("activity", activity.Name),
		logger.Int("participants", len(participants)),
		logger.Int("groups", len(refined)),
		logger.Int("swaps", swaps),
		logger.Int("attempts", attempts),
		logger.Int("max_gap", gap),
	)

	if e.shuffleResult {
		collection.Shuffle(e.src, refined)
	}
	return refined, nil
}

// validate runs the precondition checks in order: duplicates, size, ratings.
func validate(participants []*model.Participant, targetSize int, activity model.Activity) error {
	if model.HasDuplicates(participants) {
		return &Error{Op: "validate", Code: DuplicateParticipants}
	}
	if targetSize < 1 || len(participants) < 2*targetSize {
		return &Error{Op: "validate", Code: SizeMismatch}
	}
	if !model.AllRated(participants, activity) {
		return &Error{Op: "validate", Code: IncompleteRatings}
	}
	return nil
}

// order returns participants sorted by rating, highest first, with equally
// rated participants in random order.
func (e *Engine) order(participants []*model.Participant, activity model.Activity) []*model.Participant {
	buckets := collection.GroupBy(participants, func(p *model.Participant) int {
		return p.Rating(activity)
	})
	ordered := make([]*model.Participant, 0, len(participants))
	collection.EachDescending(buckets, func(_ int, bucket []*model.Participant) {
		collection.Shuffle(e.src, bucket)
		ordered = append(ordered, bucket...)
	})
	return ordered
}

// deal distributes ordered participants in snake order over the full groups
// followed by the overflow group. Each pass visits every group that still has
// room once, alternating direction between passes.
func deal(ordered []*model.Participant, targetSize int, activity model.Activity) ([]*model.Group, *model.Group) {
	fullCount := len(ordered) / targetSize
	full := make([]*model.Group, fullCount)
	for i := range full {
		full[i] = model.NewGroup(groupName(i), targetSize, activity)
	}
	overflow := model.NewGroup(groupName(fullCount), targetSize, activity)

	lanes := append(append(make([]*model.Group, 0, fullCount+1), full...), overflow)
	quota := func(lane int) int {
		if lane == fullCount {
			return len(ordered) % targetSize
		}
		return targetSize
	}

	next := 0
	forward := true
	for next < len(ordered) {
		for step := 0; step < len(lanes) && next < len(ordered); step++ {
			lane := step
			if !forward {
				lane = len(lanes) - 1 - step
			}
			if lanes[lane].CurrentSize() >= quota(lane) {
				continue
			}
			// validated input: unique and rated, so the insert cannot fail
			lanes[lane].AddPrimary(ordered[next])
			next++
		}
		forward = !forward
	}
	return full, overflow
}

// pad fills the free seats of g with reserve fillers rated at level.
func pad(g *model.Group, level int) {
	for i := g.CurrentSize(); i < g.TargetSize(); i++ {
		filler := model.NewParticipant(fmt.Sprintf("filler-%d", i))
		if err := filler.Assess(g.Activity(), level); err != nil {
			return
		}
		g.AddReserve(filler)
	}
}

// average returns the rounded mean rating of participants, at least 1.
func average(participants []*model.Participant, activity model.Activity) int {
	if len(participants) == 0 {
		return 1
	}
	avg := int(math.Round(float64(model.TotalRating(participants, activity)) / float64(len(participants))))
	return max(avg, 1)
}

// attemptCap bounds the pair attempts of one refinement at
// factor × groups² × targetSize.
func (e *Engine) attemptCap(groups, targetSize int) int {
	return e.factor * groups * groups * targetSize
}

// refine repeatedly scans all group pairs and commits the first improving
// swap, restarting the scan after each commit. It stops when a full scan
// finds nothing, limit attempts were made, or ctx is done.
func (e *Engine) refine(ctx context.Context, groups []*model.Group, limit int) (swaps, attempts int) {
	for attempts < limit {
		if ctx.Err() != nil {
			e.log.Debug(ctx, "refinement interrupted", logger.Int("swaps", swaps))
			return swaps, attempts
		}
		improved := false
	scan:
		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				if attempts >= limit {
					break scan
				}
				attempts++
				if e.trySwap(groups[i], groups[j]) {
					swaps++
					improved = true
					break scan
				}
			}
		}
		if !improved {
			return swaps, attempts
		}
	}
	e.log.Debug(ctx, "refinement cap reached", logger.Int("limit", limit), logger.Int("swaps", swaps))
	return swaps, attempts
}

type swapPair struct {
	high, low *model.Participant
}

// trySwap exchanges one primary member of the higher rated group with one of
// the lower rated group when that strictly narrows their gap. Among the pairs
// whose rating difference is closest to half the gap, one is chosen at random.
func (e *Engine) trySwap(a, b *model.Group) bool {
	ratingA, ratingB := a.Rating(), b.Rating()
	diff := ratingA - ratingB
	higher, lower := a, b
	if diff < 0 {
		diff = -diff
		higher, lower = b, a
	}
	if diff <= 1 {
		return false
	}

	activity := higher.Activity()
	ideal := float64(diff) / 2
	best := ideal
	var candidates []swapPair
	for _, h := range higher.Primary() {
		for _, l := range lower.Primary() {
			gain := h.Rating(activity) - l.Rating(activity)
			if gain <= 0 || gain >= diff {
				continue
			}
			distance := math.Abs(ideal - float64(gain))
			switch {
			case distance > best:
				continue
			case distance < best:
				best = distance
				candidates = candidates[:0]
			}
			candidates = append(candidates, swapPair{high: h, low: l})
		}
	}
	if len(candidates) == 0 {
		return false
	}

	pick := candidates[rating.Intn(e.src, len(candidates))]
	higher.Remove(pick.high)
	lower.Remove(pick.low)
	higher.AddPrimary(pick.low)
	lower.AddPrimary(pick.high)
	return true
}

// maxGap returns the spread between the highest and lowest rated group.
func maxGap(groups []*model.Group) int {
	if len(groups) == 0 {
		return 0
	}
	lo, hi := groups[0].Rating(), groups[0].Rating()
	for _, g := range groups[1:] {
		r := g.Rating()
		lo = min(lo, r)
		hi = max(hi, r)
	}
	return hi - lo
}

func groupName(i int) string {
	return fmt.Sprintf("Group %d", i+1)
}
