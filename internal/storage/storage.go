package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// ScheduledJob is a durable deferred reversal for a timed mute or role
// grant. Jobs survive restarts and are re-armed on startup.
type ScheduledJob struct {
	ID      int64
	GuildID string
	UserID  string
	RoleID  string
	Kind    string
	FireAt  time.Time
}

type ModAction struct {
	ID        int64
	GuildID   string
	ActorID   string
	TargetID  string
	Action    string
	Reason    string
	CreatedAt time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

// AddJob stores a job, replacing any existing job for the same
// (guild, user, kind) triple. One active grant per member per kind.
func (s *Store) AddJob(ctx context.Context, job ScheduledJob) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM scheduled_jobs WHERE guild_id = ? AND user_id = ? AND kind = ?
	`, job.GuildID, job.UserID, job.Kind); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (guild_id, user_id, role_id, kind, fire_at)
		VALUES (?, ?, ?, ?, ?)
	`, job.GuildID, job.UserID, job.RoleID, job.Kind, job.FireAt.Unix())
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func (s *Store) GetJob(ctx context.Context, guildID, userID, kind string) (ScheduledJob, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, user_id, role_id, kind, fire_at
		FROM scheduled_jobs
		WHERE guild_id = ? AND user_id = ? AND kind = ?
	`, guildID, userID, kind)

	var job ScheduledJob
	var fireAt int64
	err := row.Scan(&job.ID, &job.GuildID, &job.UserID, &job.RoleID, &job.Kind, &fireAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ScheduledJob{}, false, nil
		}
		return ScheduledJob{}, false, err
	}
	job.FireAt = time.Unix(fireAt, 0)
	return job, true, nil
}

func (s *Store) DeleteJob(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = ?`, id)
	return err
}

func (s *Store) DeleteJobFor(ctx context.Context, guildID, userID, kind string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM scheduled_jobs WHERE guild_id = ? AND user_id = ? AND kind = ?
	`, guildID, userID, kind)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) ListJobs(ctx context.Context) ([]ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, role_id, kind, fire_at
		FROM scheduled_jobs
		ORDER BY fire_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []ScheduledJob
	for rows.Next() {
		var job ScheduledJob
		var fireAt int64
		if err := rows.Scan(&job.ID, &job.GuildID, &job.UserID, &job.RoleID, &job.Kind, &fireAt); err != nil {
			return nil, err
		}
		job.FireAt = time.Unix(fireAt, 0)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) AddModAction(ctx context.Context, action ModAction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_actions (guild_id, actor_id, target_id, action, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, action.GuildID, action.ActorID, action.TargetID, action.Action, action.Reason, action.CreatedAt.Unix())
	return err
}

func (s *Store) ListModActions(ctx context.Context, guildID string, since time.Time) ([]ModAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, actor_id, target_id, action, reason, created_at
		FROM mod_actions
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []ModAction
	for rows.Next() {
		var action ModAction
		var created int64
		if err := rows.Scan(&action.ID, &action.GuildID, &action.ActorID, &action.TargetID, &action.Action, &action.Reason, &created); err != nil {
			return nil, err
		}
		action.CreatedAt = time.Unix(created, 0)
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
