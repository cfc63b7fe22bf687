package service

import (
	"context"
	"taskManager/internal/models/task"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) (*task.Task, error)
	FindAll(context.Context, task.Filter) ([]*task.Task, error)
	FindByID(context.Context, string) (*task.Task, error)
	Update(context.Context, string, task.Patch) (*task.Task, error)
	Delete(context.Context, string) (*task.Task, error)
	Count(context.Context, task.Filter) (int64, error)
	DeleteAll(context.Context) (int64, error)
}
