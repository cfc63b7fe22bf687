package service

import (
	"errors"
	"fmt"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeStore      = "STORE_ERROR"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}
	return busErr
}

func NewValidationError(message string, details ...Detail) *BusinessError {
	return NewBusinessError(CodeValidation, message, details...)
}

func NewNotFound(id string, err error) *BusinessError {
	busErr := NewBusinessError(CodeNotFound, messageOf(err), ToDetail("id", id))
	busErr.Err = err
	return busErr
}

// fromRepository classifies a repository failure. The message keeps the
// repository wording ("Error fetching task: Task not found").
func fromRepository(id string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, repository.ErrNotFound) {
		return NewNotFound(id, err)
	}

	var verr *task.ValidationError
	if errors.As(err, &verr) {
		busErr := NewValidationError(messageOf(err),
			ToDetail("field", verr.Field),
			ToDetail("reason", verr.Reason))
		busErr.Err = err
		return busErr
	}

	busErr := NewBusinessError(CodeStore, messageOf(err))
	busErr.Err = err
	return busErr
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func AsBusinessError(err error) (*BusinessError, bool) {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr, true
	}
	return nil, false
}
