package task

import (
	"strings"
	"time"
)

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithStatus(status Status) TaskOption {
	return func(task *Task) {
		task.Status = status
	}
}

func WithPriority(priority Priority) TaskOption {
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithDueDate(dueDate time.Time) TaskOption {
	return func(task *Task) {
		task.DueDate = &dueDate
	}
}

// Patch carries the fields of a partial update; nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	DueDate     *time.Time
}

func (p Patch) Options() []TaskOption {
	opts := []TaskOption{}
	if p.Title != nil {
		opts = append(opts, WithTitle(*p.Title))
	}
	if p.Description != nil {
		opts = append(opts, WithDescription(*p.Description))
	}
	if p.Status != nil {
		opts = append(opts, WithStatus(*p.Status))
	}
	if p.Priority != nil {
		opts = append(opts, WithPriority(*p.Priority))
	}
	if p.DueDate != nil {
		opts = append(opts, WithDueDate(*p.DueDate))
	}
	return opts
}

func (p Patch) Apply(t *Task) {
	for _, opt := range p.Options() {
		opt(t)
	}
}

// Validate checks only the supplied fields; merged onto a valid task they keep it valid.
func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Reason: "Task title is required"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "`" + string(*p.Status) + "` is not a valid status"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "`" + string(*p.Priority) + "` is not a valid priority"}
	}
	return nil
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil && p.DueDate == nil
}
