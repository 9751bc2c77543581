// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/adapters/repository"
	"github.com/okian/squad/internal/adapters/roster"
	"github.com/okian/squad/internal/domain/assignment"
	"github.com/okian/squad/internal/domain/completion"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pairing"
	"github.com/okian/squad/internal/domain/rating"
	"github.com/okian/squad/pkg/logger"
	"github.com/okian/squad/pkg/metrics"
)

// Storage backends understood by WithStorage.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

const (
	defaultMaxGroupSize     = 64
	defaultRefinementFactor = assignment.DefaultRefinementFactor
)

// Service implements the roster and balancing operations.
type Service struct {
	mu sync.RWMutex

	// engineMu gives one pass exclusive ownership of its groups and of the
	// rating source.
	engineMu sync.Mutex

	// Core components
	store     repository.Store
	src       rating.Source
	assigner  *assignment.Engine
	completer *completion.Engine

	// Configuration
	storage          string
	sqlitePath       string
	rosterPath       string
	maxGroupSize     int
	refinementFactor int
	seed             uint64

	// State
	started    bool
	ownsStore  bool
	cancelLoop context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStorage selects the roster backend. path is used by sqlite only.
func WithStorage(kind, path string) Option {
	return func(s *Service) {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if kind == StorageMemory || kind == StorageSQLite {
			s.storage = kind
			s.sqlitePath = path
		}
	}
}

// WithStore injects a ready store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRosterPath names a JSON roster imported on Start.
func WithRosterPath(path string) Option {
	return func(s *Service) {
		s.rosterPath = path
	}
}

// WithMaxGroupSize caps the target size accepted for group requests.
func WithMaxGroupSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxGroupSize = size
		}
	}
}

// WithRefinementFactor sets the refinement attempt multiplier.
func WithRefinementFactor(factor int) Option {
	return func(s *Service) {
		if factor > 0 {
			s.refinementFactor = factor
		}
	}
}

// WithRandomSeed makes balancing reproducible. Zero keeps entropy seeding.
func WithRandomSeed(seed uint64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithRatingSource injects the randomness used by every engine.
func WithRatingSource(src rating.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.src = src
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storage:          StorageMemory,
		maxGroupSize:     defaultMaxGroupSize,
		refinementFactor: defaultRefinementFactor,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store, builds the engines and imports the seed roster.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.GetOrNop()
	}
	s.logger.Info(ctx, "starting squad service...")

	loopCtx, cancel := context.WithCancel(context.Background())
	if s.store == nil {
		store, err := s.openStore(loopCtx)
		if err != nil {
			cancel()
			return err
		}
		s.store = store
		s.ownsStore = true
	}
	s.cancelLoop = cancel

	if s.src == nil {
		if s.seed != 0 {
			s.src = rating.NewSeededSource(s.seed)
		} else {
			s.src = rating.NewDefaultSource()
		}
	}
	s.assigner = assignment.New(
		assignment.WithRatingSource(s.src),
		assignment.WithRefinementFactor(s.refinementFactor),
		assignment.WithLogger(s.logger.Named("assignment")),
	)
	s.completer = completion.New(
		completion.WithRatingSource(s.src),
		completion.WithLogger(s.logger.Named("completion")),
	)

	if s.rosterPath != "" {
		if err := s.importFile(ctx, s.rosterPath); err != nil {
			s.closeStore()
			return err
		}
	}

	s.started = true
	s.publishRosterSize(ctx)
	s.logger.Info(ctx, "squad service started",
		logger.String("storage", s.storage),
		logger.Int("maxGroupSize", s.maxGroupSize),
		logger.Int("refinementFactor", s.refinementFactor),
		logger.Bool("seeded", s.seed != 0),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storage {
	case StorageSQLite:
		store, err := repository.OpenSQLite(s.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open roster store: %w", err)
		}
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.sqlitePath))
		return store, nil
	default:
		s.logger.Info(ctx, "using memory store")
		return repository.NewMemoryStore(ctx), nil
	}
}

func (s *Service) importFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open roster %s: %w", path, err)
	}
	defer f.Close()

	r, err := roster.Decode(f)
	if err != nil {
		return fmt.Errorf("load roster %s: %w", path, err)
	}
	if err := s.store.Replace(ctx, r.Activities, r.Participants); err != nil {
		return fmt.Errorf("store roster %s: %w", path, err)
	}
	s.logger.Info(ctx, "roster imported",
		logger.String("path", path),
		logger.Int("participants", len(r.Participants)),
		logger.Int("activities", len(r.Activities)),
	)
	return nil
}

func (s *Service) closeStore() {
	if s.ownsStore && s.store != nil {
		_ = s.store.Close()
		s.store = nil
		s.ownsStore = false
	}
	if s.cancelLoop != nil {
		s.cancelLoop()
		s.cancelLoop = nil
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping squad service...")
	s.closeStore()
	s.started = false
	s.logger.Info(context.Background(), "squad service stopped")
}

// running returns the store once the service is started.
func (s *Service) running() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func (s *Service) publishRosterSize(ctx context.Context) {
	participants, activities, err := s.store.Counts(ctx)
	if err != nil {
		return
	}
	metrics.UpdateRosterSize(participants, activities)
}

// RegisterActivity stores a new activity.
func (s *Service) RegisterActivity(ctx context.Context, name, category string) (model.Activity, error) {
	store, err := s.running()
	if err != nil {
		return model.Activity{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Activity{}, fmt.Errorf("%w: activity name is required", ErrInvalidInput)
	}

	a := model.NewActivity(name, strings.TrimSpace(category))
	if err := store.PutActivity(ctx, a); err != nil {
		return model.Activity{}, err
	}
	s.publishRosterSize(ctx)
	s.logger.Info(ctx, "activity registered", logger.String("id", a.ID.String()), logger.String("name", a.Name))
	return a, nil
}

// ParticipantInput describes a participant to register.
type ParticipantInput struct {
	Tag       string
	FirstName string
	LastName  string
}

// RegisterParticipant stores a new participant without ratings.
func (s *Service) RegisterParticipant(ctx context.Context, in ParticipantInput) (*model.Participant, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	tag := strings.TrimSpace(in.Tag)
	if tag == "" {
		return nil, fmt.Errorf("%w: participant tag is required", ErrInvalidInput)
	}

	p := model.NewParticipant(tag, model.WithName(strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)))
	if err := store.PutParticipant(ctx, p); err != nil {
		return nil, err
	}
	s.publishRosterSize(ctx)
	s.logger.Info(ctx, "participant registered", logger.String("id", p.ID().String()), logger.String("tag", p.Tag))
	return p, nil
}

// Assess records a rating and returns the updated participant.
func (s *Service) Assess(ctx context.Context, participantID, activityID uuid.UUID, level int) (*model.Participant, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	if level < 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, model.ErrNegativeRating)
	}
	if err := store.SaveAssessment(ctx, participantID, activityID, level); err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "participant assessed",
		logger.String("participant", participantID.String()),
		logger.String("activity", activityID.String()),
		logger.Int("level", level),
	)
	return store.Participant(ctx, participantID)
}

// ListParticipants returns every participant ordered by tag.
func (s *Service) ListParticipants(ctx context.Context) ([]*model.Participant, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	return store.Participants(ctx)
}

// ListActivities returns every activity ordered by name.
func (s *Service) ListActivities(ctx context.Context) ([]model.Activity, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	return store.Activities(ctx)
}

// GroupRequest selects the pool and size for an assignment.
// An empty ParticipantIDs means every participant rated for the activity.
type GroupRequest struct {
	ActivityID     uuid.UUID
	ParticipantIDs []uuid.UUID
	Size           int
}

// GenerateGroups balances the requested pool into groups.
func (s *Service) GenerateGroups(ctx context.Context, req GroupRequest) ([]*model.Group, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(req.Size); err != nil {
		return nil, err
	}
	activity, err := store.Activity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	pool, err := s.pool(ctx, store, activity, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	groups, err := s.assign(ctx, pool, req.Size, activity)
	if err != nil {
		s.logger.Info(ctx, "group generation rejected",
			logger.String("activity", activity.Name),
			logger.Int("participants", len(pool)),
			logger.Error(err),
		)
		return nil, err
	}

	s.logger.Info(ctx, "groups generated",
		logger.String("activity", activity.Name),
		logger.Int("participants", len(pool)),
		logger.Int("groups", len(groups)),
	)
	return groups, nil
}

// GenerateMatches balances the pool and pairs the groups into matches.
func (s *Service) GenerateMatches(ctx context.Context, req GroupRequest) ([]model.Match, error) {
	groups, err := s.GenerateGroups(ctx, req)
	if err != nil {
		return nil, err
	}
	matches := s.pair(groups)
	s.logger.Info(ctx, "matches generated", logger.Int("matches", len(matches)))
	return matches, nil
}

// CompletionRequest describes a partially staffed group and its candidates.
type CompletionRequest struct {
	ActivityID   uuid.UUID
	Name         string
	Size         int
	MemberIDs    []uuid.UUID
	CandidateIDs []uuid.UUID
	Min          int
	Max          int
}

// CompletionResult is the completed group and the participants chosen for it.
type CompletionResult struct {
	Group     *model.Group
	Selection []*model.Participant
	InRange   bool
}

// CompleteGroup fills the free seats of the described group.
func (s *Service) CompleteGroup(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	store, err := s.running()
	if err != nil {
		return CompletionResult{}, err
	}
	if err := s.checkSize(req.Size); err != nil {
		return CompletionResult{}, err
	}
	activity, err := store.Activity(ctx, req.ActivityID)
	if err != nil {
		return CompletionResult{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Group"
	}
	group := model.NewGroup(name, req.Size, activity)
	members, err := s.load(ctx, store, req.MemberIDs)
	if err != nil {
		return CompletionResult{}, err
	}
	for _, m := range members {
		if !group.AddPrimary(m) {
			return CompletionResult{}, fmt.Errorf("%w: member %s cannot join the group", ErrInvalidInput, m.ID())
		}
	}
	candidates, err := s.load(ctx, store, req.CandidateIDs)
	if err != nil {
		return CompletionResult{}, err
	}

	selection, err := s.complete(ctx, candidates, group, req.Min, req.Max)
	if err != nil {
		s.logger.Info(ctx, "group completion rejected", logger.String("group", name), logger.Error(err))
		return CompletionResult{}, err
	}

	for _, p := range selection {
		group.AddPrimary(p)
	}
	result := CompletionResult{
		Group:     group.Snapshot(),
		Selection: selection,
		InRange:   completion.Range{Min: req.Min, Max: req.Max}.Contains(group.Rating()),
	}
	s.logger.Info(ctx, "group completed",
		logger.String("group", name),
		logger.Int("rating", group.Rating()),
		logger.Bool("inRange", result.InRange),
	)
	return result, nil
}

func (s *Service) assign(ctx context.Context, pool []*model.Participant, size int, activity model.Activity) ([]*model.Group, error) {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()
	return s.assigner.Assign(ctx, pool, size, activity)
}

func (s *Service) pair(groups []*model.Group) []model.Match {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()
	return pairing.Pair(s.src, groups)
}

func (s *Service) complete(ctx context.Context, candidates []*model.Participant, group *model.Group, minTotal, maxTotal int) ([]*model.Participant, error) {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()
	return s.completer.Complete(ctx, candidates, group, minTotal, maxTotal)
}

func (s *Service) checkSize(size int) error {
	if size < 1 {
		return fmt.Errorf("%w: group size %d must be positive", ErrInvalidInput, size)
	}
	if size > s.maxGroupSize {
		return fmt.Errorf("%w: group size %d exceeds maximum %d", ErrInvalidInput, size, s.maxGroupSize)
	}
	return nil
}

// pool resolves ids, or every participant rated for activity when ids is empty.
func (s *Service) pool(ctx context.Context, store repository.Store, activity model.Activity, ids []uuid.UUID) ([]*model.Participant, error) {
	if len(ids) > 0 {
		return s.load(ctx, store, ids)
	}
	all, err := store.Participants(ctx)
	if err != nil {
		return nil, err
	}
	rated := all[:0]
	for _, p := range all {
		if p.IsRated(activity) {
			rated = append(rated, p)
		}
	}
	return rated, nil
}

// load resolves ids in order. Repeated ids resolve to distinct values with
// the same identity so the engines can report them.
func (s *Service) load(ctx context.Context, store repository.Store, ids []uuid.UUID) ([]*model.Participant, error) {
	out := make([]*model.Participant, 0, len(ids))
	for _, id := range ids {
		p, err := store.Participant(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ImportRoster replaces the whole roster with the document read from r.
func (s *Service) ImportRoster(ctx context.Context, r io.Reader) (participants, activities int, err error) {
	store, err := s.running()
	if err != nil {
		return 0, 0, err
	}
	doc, err := roster.Decode(r)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := store.Replace(ctx, doc.Activities, doc.Participants); err != nil {
		return 0, 0, err
	}
	s.publishRosterSize(ctx)
	s.logger.Info(ctx, "roster imported",
		logger.Int("participants", len(doc.Participants)),
		logger.Int("activities", len(doc.Activities)),
	)
	return len(doc.Participants), len(doc.Activities), nil
}

// ExportRoster writes the whole roster to w.
func (s *Service) ExportRoster(ctx context.Context, w io.Writer) error {
	store, err := s.running()
	if err != nil {
		return err
	}
	activities, err := store.Activities(ctx)
	if err != nil {
		return err
	}
	participants, err := store.Participants(ctx)
	if err != nil {
		return err
	}
	return roster.Encode(w, activities, participants)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"storage":          s.storage,
		"maxGroupSize":     s.maxGroupSize,
		"refinementFactor": s.refinementFactor,
	}

	if s.started {
		participants, activities, err := s.store.Counts(context.Background())
		if err == nil {
			stats["participants"] = participants
			stats["activities"] = activities
			metrics.UpdateRosterSize(participants, activities)
		}
	}

	return stats
}
