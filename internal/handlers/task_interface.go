package handlers

import (
	"context"
	"taskManager/internal/models/task"
)

type Service interface {
	HealthCheck(context.Context) error
	CreateTask(context.Context, *task.Task) (*task.Task, error)
	GetAllTasks(context.Context, task.Filter) ([]*task.Task, error)
	GetTaskByID(context.Context, string) (*task.Task, error)
	UpdateTask(context.Context, string, task.Patch) (*task.Task, error)
	DeleteTask(context.Context, string) (*task.Task, error)
	GetTaskStats(context.Context) (*task.Stats, error)
}
