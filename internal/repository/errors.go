package repository

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("Task not found")

// StoreError is the uniform shape of every failure leaving a task store.
// Op names the failed operation ("creating task", "fetching tasks", ...).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("Error %s: %s", e.Op, e.Err.Error())
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

const (
	OpCreate    = "creating task"
	OpFetch     = "fetching task"
	OpList      = "fetching tasks"
	OpUpdate    = "updating task"
	OpDelete    = "deleting task"
	OpCount     = "counting tasks"
	OpDeleteAll = "deleting all tasks"
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
