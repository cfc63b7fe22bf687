package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"taskManager/internal/models/task"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Date accepts RFC 3339 timestamps as well as bare dates like "2099-01-01".
// Values without a zone are read as UTC. An empty string counts as no date.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("dueDate must be a string: %w", err)
	}
	if s == "" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d *Date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     *Date  `json:"dueDate"`
}

func (r CreateTaskRequest) ToTask() *task.Task {
	return &task.Task{
		Title:       r.Title,
		Description: r.Description,
		Status:      task.Status(r.Status),
		Priority:    task.Priority(r.Priority),
		DueDate:     r.DueDate.ptr(),
	}
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *Date   `json:"dueDate,omitempty"`
}

func (r UpdateTaskRequest) ToPatch() task.Patch {
	return task.Patch{
		Title:       r.Title,
		Description: r.Description,
		Status:      (*task.Status)(r.Status),
		Priority:    (*task.Priority)(r.Priority),
		DueDate:     r.DueDate.ptr(),
	}
}

// UpdateFromForm reads a form-encoded body; only keys present become patch fields.
func UpdateFromForm(form url.Values) (UpdateTaskRequest, error) {
	var req UpdateTaskRequest
	pick := func(key string) *string {
		if _, ok := form[key]; !ok {
			return nil
		}
		v := form.Get(key)
		return &v
	}

	req.Title = pick("title")
	req.Description = pick("description")
	req.Status = pick("status")
	req.Priority = pick("priority")
	if raw := pick("dueDate"); raw != nil && *raw != "" {
		d, err := ParseDate(*raw)
		if err != nil {
			return req, err
		}
		req.DueDate = &d
	}
	return req, nil
}

func CreateFromForm(form url.Values) (CreateTaskRequest, error) {
	req := CreateTaskRequest{
		Title:       form.Get("title"),
		Description: form.Get("description"),
		Status:      form.Get("status"),
		Priority:    form.Get("priority"),
	}
	if raw := form.Get("dueDate"); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			return req, err
		}
		req.DueDate = &d
	}
	return req, nil
}

type TaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}
