package postgres

import (
	"context"
	"errors"
	"fmt"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = 100 * time.Millisecond

const selectColumns = `id::text, title, description, status, priority, due_date, created_at, updated_at`

// PoolConfig tunes the connection pool; zero values fall back to the defaults below.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

type Storage struct {
	pool       *pgxpool.Pool
	connString string
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: failed to parse postgres config", err)
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = poolCfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL")
	return &Storage{pool: pool, connString: connString}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: PostgreSQL connections closed")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) (*task.Task, error) {
	start := time.Now()

	t := *taskToCreate
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return nil, repo.Wrap(repo.OpCreate, err)
	}

	query := `INSERT INTO tasks
				(id, title, description, status, priority, due_date, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
				RETURNING ` + selectColumns

	created, err := scanTask(s.pool.QueryRow(ctx, query,
		uuid.New(),
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		t.DueDate,
		time.Now(),
	))
	if err != nil {
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return nil, repo.Wrap(repo.OpCreate, err)
	}

	warnIfSlow(start, "create")
	return created, nil
}

func (s *Storage) FindAll(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + selectColumns + `
				FROM tasks
				WHERE ($1 = '' OR status = $1)
				  AND ($2 = '' OR priority = $2)
				ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, string(filter.Status), string(filter.Priority))
	if err != nil {
		logger.Error("Repository: failed to list tasks", err, zap.Duration("ms", time.Since(start)))
		return nil, repo.Wrap(repo.OpList, err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, repo.Wrap(repo.OpList, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, repo.Wrap(repo.OpList, err)
	}

	warnIfSlow(start, "find_all")
	return tasks, nil
}

func (s *Storage) FindByID(ctx context.Context, id string) (*task.Task, error) {
	start := time.Now()

	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, repo.Wrap(repo.OpFetch, repo.ErrNotFound)
	}

	query := `SELECT ` + selectColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.Wrap(repo.OpFetch, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to fetch task", err, zap.Duration("ms", time.Since(start)))
		return nil, repo.Wrap(repo.OpFetch, err)
	}

	warnIfSlow(start, "find_by_id")
	return t, nil
}

func (s *Storage) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	start := time.Now()

	if err := patch.Validate(); err != nil {
		return nil, repo.Wrap(repo.OpUpdate, err)
	}

	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, repo.Wrap(repo.OpUpdate, repo.ErrNotFound)
	}

	query := `UPDATE tasks
			SET title = COALESCE($2, title),
				description = COALESCE($3, description),
				status = COALESCE($4, status),
				priority = COALESCE($5, priority),
				due_date = COALESCE($6, due_date),
				updated_at = NOW()
			WHERE id = $1
			RETURNING ` + selectColumns

	t, err := scanTask(s.pool.QueryRow(ctx, query,
		taskID,
		patch.Title,
		patch.Description,
		(*string)(patch.Status),
		(*string)(patch.Priority),
		patch.DueDate,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.Wrap(repo.OpUpdate, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to update task", err, zap.Duration("ms", time.Since(start)))
		return nil, repo.Wrap(repo.OpUpdate, err)
	}

	warnIfSlow(start, "update")
	return t, nil
}

func (s *Storage) Delete(ctx context.Context, id string) (*task.Task, error) {
	start := time.Now()

	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, repo.Wrap(repo.OpDelete, repo.ErrNotFound)
	}

	query := `DELETE FROM tasks WHERE id = $1 RETURNING ` + selectColumns

	t, err := scanTask(s.pool.QueryRow(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.Wrap(repo.OpDelete, repo.ErrNotFound)
		}
		logger.Error("Repository: failed to delete task", err, zap.Duration("ms", time.Since(start)))
		return nil, repo.Wrap(repo.OpDelete, err)
	}

	warnIfSlow(start, "delete")
	return t, nil
}

func (s *Storage) Count(ctx context.Context, filter task.Filter) (int64, error) {
	query := `SELECT COUNT(*) FROM tasks
				WHERE ($1 = '' OR status = $1)
				  AND ($2 = '' OR priority = $2)`

	var n int64
	if err := s.pool.QueryRow(ctx, query, string(filter.Status), string(filter.Priority)).Scan(&n); err != nil {
		logger.Error("Repository: failed to count tasks", err)
		return 0, repo.Wrap(repo.OpCount, err)
	}
	return n, nil
}

func (s *Storage) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks`)
	if err != nil {
		logger.Error("Repository: failed to delete all tasks", err)
		return 0, repo.Wrap(repo.OpDeleteAll, err)
	}
	return tag.RowsAffected(), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	var (
		t        task.Task
		status   string
		priority string
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	t.Priority = task.Priority(priority)
	return &t, nil
}

func warnIfSlow(start time.Time, op string) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: slow query", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}
