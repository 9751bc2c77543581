// Package pairing turns a set of groups into opponents.
package pairing

import (
	"github.com/google/uuid"
	"github.com/okian/squad/internal/domain/collection"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/rating"
	"github.com/okian/squad/pkg/metrics"
)

// Pair shuffles groups and pairs them off in consecutive order. With an odd
// number of groups the last match has no away group. The input slice is not
// reordered.
func Pair(src rating.Source, groups []*model.Group) []model.Match {
	shuffled := make([]*model.Group, 0, len(groups))
	for _, g := range groups {
		if g != nil {
			shuffled = append(shuffled, g)
		}
	}
	collection.Shuffle(src, shuffled)

	matches := make([]model.Match, 0, (len(shuffled)+1)/2)
	for i := 0; i < len(shuffled); i += 2 {
		m := model.Match{ID: uuid.New(), Home: shuffled[i]}
		if i+1 < len(shuffled) {
			m.Away = shuffled[i+1]
		}
		matches = append(matches, m)
	}
	metrics.RecordMatchesCreated(len(matches))
	return matches
}
