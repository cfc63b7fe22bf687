package service

import (
	"context"
	"fmt"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	msgDueDateInPast      = "Due date cannot be in the past"
	msgPendingToCompleted = "Cannot mark pending task as completed. Move to in-progress first."
)

// TaskService enforces the business rules on top of a TaskRepository.
type TaskService struct {
	repo TaskRepository
	now  func() time.Time
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("service health check: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	if t.DueDate != nil && t.DueDate.Before(s.now()) {
		logger.Info("Service: rejected task with past due date", zap.Time("due_date", *t.DueDate))
		return nil, NewValidationError(msgDueDateInPast, ToDetail("field", "dueDate"))
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, fromRepository("", err)
	}

	logger.Info("Service: task created", zap.String("task_id", created.ID))
	return created, nil
}

func (s *TaskService) GetAllTasks(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	tasks, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fromRepository("", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, id string) (*task.Task, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepository(id, err)
	}
	return t, nil
}

// UpdateTask merges patch into the stored task. Moving a pending task straight
// to completed is rejected. The status check reads before it writes and is not
// atomic with the update.
func (s *TaskService) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	if patch.Status != nil && *patch.Status == task.StatusCompleted {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, fromRepository(id, err)
		}
		if current.Status == task.StatusPending {
			logger.Info("Service: rejected status transition",
				zap.String("task_id", id),
				zap.String("from", string(current.Status)),
				zap.String("to", string(task.StatusCompleted)))
			return nil, NewValidationError(msgPendingToCompleted,
				ToDetail("field", "status"),
				ToDetail("from", current.Status),
				ToDetail("to", task.StatusCompleted))
		}
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fromRepository(id, err)
	}
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) (*task.Task, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fromRepository(id, err)
	}

	logger.Info("Service: task deleted", zap.String("task_id", id))
	return deleted, nil
}

// GetTaskStats issues four independent counts. They are not taken from one
// snapshot, so concurrent writes can make them disagree.
func (s *TaskService) GetTaskStats(ctx context.Context) (*task.Stats, error) {
	stats := &task.Stats{}

	g, gctx := errgroup.WithContext(ctx)
	counts := []struct {
		filter task.Filter
		dst    *int64
	}{
		{task.Filter{}, &stats.Total},
		{task.Filter{Status: task.StatusPending}, &stats.Pending},
		{task.Filter{Status: task.StatusInProgress}, &stats.InProgress},
		{task.Filter{Status: task.StatusCompleted}, &stats.Completed},
	}
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := s.repo.Count(gctx, c.filter)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fromRepository("", err)
	}
	return stats, nil
}

// ClearTasks removes every task. Not reachable over HTTP.
func (s *TaskService) ClearTasks(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fromRepository("", err)
	}
	logger.Warn("Service: all tasks removed", zap.Int64("count", n))
	return n, nil
}
