package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/pkg/metrics"
)

const memoryBackend = "memory"

// participantRecord is the stored form of a participant. Ratings are kept by
// activity id and joined with the activity table on read.
type participantRecord struct {
	tag       string
	firstName string
	lastName  string
	levels    map[uuid.UUID]int
}

// MemoryStore is an in-memory Store guarded by a RWMutex.
type MemoryStore struct {
	mu           sync.RWMutex
	activities   map[uuid.UUID]model.Activity
	participants map[uuid.UUID]participantRecord

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an empty store and starts its metrics updater,
// which stops when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		activities:            make(map[uuid.UUID]model.Activity),
		participants:          make(map[uuid.UUID]participantRecord),
		metricsUpdateInterval: metrics.RefreshInterval(),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// startMetricsUpdater starts a background goroutine that publishes roster sizes.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	participants, activities := len(s.participants), len(s.activities)
	s.mu.RUnlock()
	metrics.UpdateRosterSize(participants, activities)
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func observe(backend, op string, start time.Time) {
	metrics.RecordStoreLatency(backend, op, metrics.Since(start))
}

// PutActivity implements Store.
func (s *MemoryStore) PutActivity(ctx context.Context, a model.Activity) error {
	defer observe(memoryBackend, "put_activity", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		return model.ErrUnknownActivity
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[a.ID]; ok {
		return fmt.Errorf("activity %s: %w", a.ID, ErrAlreadyExists)
	}
	s.activities[a.ID] = a
	return nil
}

// Activity implements Store.
func (s *MemoryStore) Activity(ctx context.Context, id uuid.UUID) (model.Activity, error) {
	defer observe(memoryBackend, "get_activity", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Activity{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[id]
	if !ok {
		return model.Activity{}, fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// Activities implements Store.
func (s *MemoryStore) Activities(ctx context.Context) ([]model.Activity, error) {
	defer observe(memoryBackend, "list_activities", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]model.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, a)
	}
	s.mu.RUnlock()
	sortActivities(out)
	return out, nil
}

// PutParticipant implements Store.
func (s *MemoryStore) PutParticipant(ctx context.Context, p *model.Participant) error {
	defer observe(memoryBackend, "put_participant", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.ID()]; ok {
		return fmt.Errorf("participant %s: %w", p.ID(), ErrAlreadyExists)
	}
	rec, err := recordOf(s.activities, p)
	if err != nil {
		return err
	}
	s.participants[p.ID()] = rec
	return nil
}

// recordOf converts p, checking that every rated activity is in activities.
func recordOf(activities map[uuid.UUID]model.Activity, p *model.Participant) (participantRecord, error) {
	rec := participantRecord{
		tag:       p.Tag,
		firstName: p.FirstName,
		lastName:  p.LastName,
		levels:    make(map[uuid.UUID]int),
	}
	for _, a := range p.Assessments() {
		if _, ok := activities[a.Activity.ID]; !ok {
			return participantRecord{}, fmt.Errorf("activity %s: %w", a.Activity.ID, ErrNotFound)
		}
		rec.levels[a.Activity.ID] = a.Level
	}
	return rec, nil
}

// Participant implements Store.
func (s *MemoryStore) Participant(ctx context.Context, id uuid.UUID) (*model.Participant, error) {
	defer observe(memoryBackend, "get_participant", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.participants[id]
	if !ok {
		return nil, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	return s.hydrate(id, rec)
}

// Participants implements Store.
func (s *MemoryStore) Participants(ctx context.Context) ([]*model.Participant, error) {
	defer observe(memoryBackend, "list_participants", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*model.Participant, 0, len(s.participants))
	for id, rec := range s.participants {
		p, err := s.hydrate(id, rec)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		out = append(out, p)
	}
	s.mu.RUnlock()
	sortParticipants(out)
	return out, nil
}

// hydrate builds a fresh participant from rec. Callers hold the lock.
func (s *MemoryStore) hydrate(id uuid.UUID, rec participantRecord) (*model.Participant, error) {
	p := model.NewParticipant(rec.tag, model.WithID(id), model.WithName(rec.firstName, rec.lastName))
	for activityID, level := range rec.levels {
		if err := p.Assess(s.activities[activityID], level); err != nil {
			return nil, fmt.Errorf("participant %s: %w", id, err)
		}
	}
	return p, nil
}

// SaveAssessment implements Store.
func (s *MemoryStore) SaveAssessment(ctx context.Context, participantID, activityID uuid.UUID, level int) error {
	defer observe(memoryBackend, "save_assessment", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if level < 0 {
		return model.ErrNegativeRating
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.participants[participantID]
	if !ok {
		return fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
	}
	if _, ok := s.activities[activityID]; !ok {
		return fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
	}
	rec.levels[activityID] = level
	return nil
}

// Replace implements Store.
func (s *MemoryStore) Replace(ctx context.Context, activities []model.Activity, participants []*model.Participant) error {
	defer observe(memoryBackend, "replace", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	nextActivities := make(map[uuid.UUID]model.Activity, len(activities))
	for _, a := range activities {
		if _, ok := nextActivities[a.ID]; ok {
			return fmt.Errorf("activity %s: %w", a.ID, ErrAlreadyExists)
		}
		nextActivities[a.ID] = a
	}
	nextParticipants := make(map[uuid.UUID]participantRecord, len(participants))
	for _, p := range participants {
		if _, ok := nextParticipants[p.ID()]; ok {
			return fmt.Errorf("participant %s: %w", p.ID(), ErrAlreadyExists)
		}
		rec, err := recordOf(nextActivities, p)
		if err != nil {
			return err
		}
		nextParticipants[p.ID()] = rec
	}

	s.mu.Lock()
	s.activities = nextActivities
	s.participants = nextParticipants
	s.mu.Unlock()
	return nil
}

// Counts implements Store.
func (s *MemoryStore) Counts(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants), len(s.activities), nil
}

var _ Store = (*MemoryStore)(nil)
