package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/domain/model"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const sqliteBackend = "sqlite"

//go:embed schema.sql
var schema string

// SQLStore persists the roster in SQLite.
type SQLStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens a SQLite roster store at path and applies the schema.
func OpenSQLite(path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLStore{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SQLStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return ErrNotConfigured
	}
	return nil
}

// PutActivity implements Store.
func (s *SQLStore) PutActivity(ctx context.Context, a model.Activity) error {
	defer observe(sqliteBackend, "put_activity", time.Now())
	if err := s.ready(ctx); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		return model.ErrUnknownActivity
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO activities (id, name, category) VALUES (?, ?, ?)`,
		a.ID.String(), a.Name, a.Category,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("activity %s: %w", a.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("put activity: %w", err)
	}
	return nil
}

// Activity implements Store.
func (s *SQLStore) Activity(ctx context.Context, id uuid.UUID) (model.Activity, error) {
	defer observe(sqliteBackend, "get_activity", time.Now())
	if err := s.ready(ctx); err != nil {
		return model.Activity{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, category FROM activities WHERE id = ?`, id.String())
	a, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Activity{}, fmt.Errorf("activity %s: %w", id, ErrNotFound)
		}
		return model.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

// Activities implements Store.
func (s *SQLStore) Activities(ctx context.Context) ([]model.Activity, error) {
	defer observe(sqliteBackend, "list_activities", time.Now())
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	byID, err := s.activityIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Activity, 0, len(byID))
	for _, a := range byID {
		out = append(out, a)
	}
	sortActivities(out)
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (model.Activity, error) {
	var id, name, category string
	if err := row.Scan(&id, &name, &category); err != nil {
		return model.Activity{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return model.Activity{}, fmt.Errorf("parse activity id %q: %w", id, err)
	}
	return model.Activity{ID: parsed, Name: name, Category: category}, nil
}

func (s *SQLStore) activityIndex(ctx context.Context) (map[uuid.UUID]model.Activity, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name, category FROM activities`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]model.Activity)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

// PutParticipant implements Store.
func (s *SQLStore) PutParticipant(ctx context.Context, p *model.Participant) error {
	defer observe(sqliteBackend, "put_participant", time.Now())
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertParticipant(ctx, tx, p)
	})
}

func insertParticipant(ctx context.Context, tx *sql.Tx, p *model.Participant) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO participants (id, tag, first_name, last_name) VALUES (?, ?, ?, ?)`,
		p.ID().String(), p.Tag, p.FirstName, p.LastName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("participant %s: %w", p.ID(), ErrAlreadyExists)
		}
		return fmt.Errorf("put participant: %w", err)
	}
	for _, a := range p.Assessments() {
		if err := upsertAssessment(ctx, tx, p.ID(), a.Activity.ID, a.Level); err != nil {
			return err
		}
	}
	return nil
}

func upsertAssessment(ctx context.Context, tx *sql.Tx, participantID, activityID uuid.UUID, level int) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM activities WHERE id = ?`, activityID.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check activity: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO assessments (participant_id, activity_id, level) VALUES (?, ?, ?)
		 ON CONFLICT (participant_id, activity_id) DO UPDATE SET level = excluded.level`,
		participantID.String(), activityID.String(), level,
	)
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

// Participant implements Store.
func (s *SQLStore) Participant(ctx context.Context, id uuid.UUID) (*model.Participant, error) {
	defer observe(sqliteBackend, "get_participant", time.Now())
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	ps, err := s.loadParticipants(ctx, `WHERE p.id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	return ps[0], nil
}

// Participants implements Store.
func (s *SQLStore) Participants(ctx context.Context) ([]*model.Participant, error) {
	defer observe(sqliteBackend, "list_participants", time.Now())
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	ps, err := s.loadParticipants(ctx, "")
	if err != nil {
		return nil, err
	}
	sortParticipants(ps)
	return ps, nil
}

// loadParticipants reads participants matching where and links their
// assessments. where filters the participants table aliased as p, and the
// same filter restricts the assessment query so only the selected rows are
// read.
func (s *SQLStore) loadParticipants(ctx context.Context, where string, args ...any) ([]*model.Participant, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT p.id, p.tag, p.first_name, p.last_name FROM participants p `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	var out []*model.Participant
	byID := make(map[uuid.UUID]*model.Participant)
	for rows.Next() {
		var id, tag, first, last string
		if err := rows.Scan(&id, &tag, &first, &last); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse participant id %q: %w", id, err)
		}
		p := model.NewParticipant(tag, model.WithID(parsed), model.WithName(first, last))
		out = append(out, p)
		byID[parsed] = p
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	arows, err := s.sqlDB.QueryContext(ctx, `
		SELECT a.participant_id, act.id, act.name, act.category, a.level
		FROM assessments a
		JOIN activities act ON act.id = a.activity_id
		JOIN participants p ON p.id = a.participant_id `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var pid, aid, name, category string
		var level int
		if err := arows.Scan(&pid, &aid, &name, &category, &level); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		participantID, err := uuid.Parse(pid)
		if err != nil {
			return nil, fmt.Errorf("parse participant id %q: %w", pid, err)
		}
		activityID, err := uuid.Parse(aid)
		if err != nil {
			return nil, fmt.Errorf("parse activity id %q: %w", aid, err)
		}
		p, ok := byID[participantID]
		if !ok {
			continue
		}
		activity := model.Activity{ID: activityID, Name: name, Category: category}
		if err := p.Assess(activity, level); err != nil {
			return nil, fmt.Errorf("participant %s: %w", pid, err)
		}
	}
	if err := arows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}
	return out, nil
}

// SaveAssessment implements Store.
func (s *SQLStore) SaveAssessment(ctx context.Context, participantID, activityID uuid.UUID, level int) error {
	defer observe(sqliteBackend, "save_assessment", time.Now())
	if err := s.ready(ctx); err != nil {
		return err
	}
	if level < 0 {
		return model.ErrNegativeRating
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM participants WHERE id = ?`, participantID.String()).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("check participant: %w", err)
		}
		return upsertAssessment(ctx, tx, participantID, activityID, level)
	})
}

// Replace implements Store.
func (s *SQLStore) Replace(ctx context.Context, activities []model.Activity, participants []*model.Participant) error {
	defer observe(sqliteBackend, "replace", time.Now())
	if err := s.ready(ctx); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"assessments", "participants", "activities"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, a := range activities {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO activities (id, name, category) VALUES (?, ?, ?)`,
				a.ID.String(), a.Name, a.Category,
			)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("activity %s: %w", a.ID, ErrAlreadyExists)
				}
				return fmt.Errorf("put activity: %w", err)
			}
		}
		for _, p := range participants {
			if err := insertParticipant(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// Counts implements Store.
func (s *SQLStore) Counts(ctx context.Context) (int, int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, 0, err
	}
	var participants, activities int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM participants), (SELECT COUNT(*) FROM activities)`,
	).Scan(&participants, &activities)
	if err != nil {
		return 0, 0, fmt.Errorf("count roster: %w", err)
	}
	return participants, activities, nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ Store = (*SQLStore)(nil)
