package model

import (
	"slices"

	"github.com/google/uuid"
)

// Group is a team with a fixed capacity bound to one activity. Members are
// split into primary and reserve participants; the two sets never overlap
// and together never exceed the target size. Membership is by identity.
//
// A Group is not safe for concurrent mutation.
type Group struct {
	id         uuid.UUID
	name       string
	targetSize int
	activity   Activity
	primary    []*Participant
	reserve    []*Participant
}

// NewGroup creates an empty group.
func NewGroup(name string, targetSize int, activity Activity) *Group {
	return &Group{
		id:         uuid.New(),
		name:       name,
		targetSize: targetSize,
		activity:   activity,
	}
}

func (g *Group) ID() uuid.UUID { return g.id }
func (g *Group) Name() string { return g.name }
func (g *Group) TargetSize() int { return g.targetSize }
func (g *Group) Activity() Activity { return g.activity }
func (g *Group) CurrentSize() int { return len(g.primary) + len(g.reserve) }
func (g *Group) IsFull() bool { return g.CurrentSize() >= g.targetSize }
func (g *Group) Missing() int { return g.targetSize - g.CurrentSize() }
func (g *Group) Rename(name string) { g.name = name }
func (g *Group) Primary() []*Participant { return slices.Clone(g.primary) }
func (g *Group) Reserve() []*Participant { return slices.Clone(g.reserve) }

// Members returns primary members followed by reserve members.
func (g *Group) Members() []*Participant {
	out := make([]*Participant, 0, g.CurrentSize())
	out = append(out, g.primary...)
	return append(out, g.reserve...)
}

// AddPrimary inserts p as a primary member. It reports false, leaving the
// group untouched, when the group is full, p is already a member, or p has
// no positive rating for the group's activity.
func (g *Group) AddPrimary(p *Participant) bool {
	if !g.admits(p) {
		return false
	}
	g.primary = append(g.primary, p)
	return true
}

// AddReserve inserts p as a reserve member under the same rules as AddPrimary.
func (g *Group) AddReserve(p *Participant) bool {
	if !g.admits(p) {
		return false
	}
	g.reserve = append(g.reserve, p)
	return true
}

func (g *Group) admits(p *Participant) bool {
	return p != nil &&
		g.CurrentSize() < g.targetSize &&
		!g.IsMember(p) &&
		p.IsRated(g.activity)
}

// Remove drops p from whichever collection holds it. Removing a non-member
// is a no-op.
func (g *Group) Remove(p *Participant) {
	if p == nil {
		return
	}
	g.primary = without(g.primary, p.id)
	g.reserve = without(g.reserve, p.id)
}

// IsMember reports whether p is a primary or reserve member.
func (g *Group) IsMember(p *Participant) bool {
	if p == nil {
		return false
	}
	return indexOf(g.primary, p.id) >= 0 || indexOf(g.reserve, p.id) >= 0
}

func (g *Group) ClearPrimary() { g.primary = nil }
func (g *Group) ClearReserve() { g.reserve = nil }

// Rating sums the members' ratings for the bound activity.
func (g *Group) Rating() int {
	return TotalRating(g.primary, g.activity) + TotalRating(g.reserve, g.activity)
}

// HasRatingFor reports whether the group is non-empty and every member is
// rated for activity.
func (g *Group) HasRatingFor(activity Activity) bool {
	return g.CurrentSize() > 0 && AllRated(g.Members(), activity)
}

// Snapshot returns a copy whose member lists are independent of g.
// Participants themselves are shared.
func (g *Group) Snapshot() *Group {
	c := *g
	c.primary = slices.Clone(g.primary)
	c.reserve = slices.Clone(g.reserve)
	return &c
}

func indexOf(ps []*Participant, id uuid.UUID) int {
	return slices.IndexFunc(ps, func(p *Participant) bool { return p.id == id })
}

func without(ps []*Participant, id uuid.UUID) []*Participant {
	i := indexOf(ps, id)
	if i < 0 {
		return ps
	}
	return slices.Delete(ps, i, i+1)
}

// Match pairs a group with its opponent. Away is nil when the group has no
// opponent (odd number of groups).
type Match struct {
	ID   uuid.UUID
	Home *Group
	Away *Group
}

// HasOpponent reports whether the match has an away group.
func (m Match) HasOpponent() bool { return m.Away != nil }
