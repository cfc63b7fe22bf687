package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"taskManager/internal/handlers"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"
	"taskManager/internal/service"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskService is a testify mock of handlers.Service.
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskService) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) GetAllTasks(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskService) GetTaskByID(ctx context.Context, id string) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, id string) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) GetTaskStats(ctx context.Context) (*task.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Stats), args.Error(1)
}

var _ handlers.Service = (*MockTaskService)(nil)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(svc handlers.Service, mode handlers.ErrorMode) http.Handler {
	h := handlers.NewTaskHandler(svc, mode)
	r := chi.NewRouter()
	r.Route("/api/tasks", h.Routes)
	r.Get("/health", h.HealthCheck)
	return r
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func validationErr(msg string) error {
	return service.NewValidationError(msg)
}

func notFoundErr(id string) error {
	return service.NewNotFound(id, repository.Wrap(repository.OpFetch, repository.ErrNotFound))
}

func storeErr() error {
	busErr := service.NewBusinessError(service.CodeStore, "Error fetching tasks: connection reset")
	busErr.Err = errors.New("connection reset")
	return busErr
}

func TestTaskHandler_HealthCheck(t *testing.T) {
	mockService := new(MockTaskService)
	w, _ := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "GET", "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","message":"Server is running"}`, w.Body.String())
	mockService.AssertNotCalled(t, "HealthCheck", mock.Anything)
}

func TestTaskHandler_CreateTask(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name           string
		body           string
		contentType    string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:        "success - json body with bare date",
			body:        `{"title":"A","dueDate":"2099-01-01","priority":"high"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Title == "A" && t.Priority == task.PriorityHigh &&
						t.DueDate != nil && t.DueDate.Equal(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC))
				})).Return(&task.Task{ID: "1", Title: "A", Status: task.StatusPending, CreatedAt: now, UpdatedAt: now}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "Task created successfully",
		},
		{
			name:        "success - form body",
			body:        url.Values{"title": {"Form task"}, "description": {"from a form"}}.Encode(),
			contentType: "application/x-www-form-urlencoded",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Title == "Form task" && t.Description == "from a form" && t.DueDate == nil
				})).Return(&task.Task{ID: "2", Title: "Form task"}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "Task created successfully",
		},
		{
			name:        "success - empty due date is treated as absent",
			body:        `{"title":"A","dueDate":""}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Title == "A" && t.DueDate == nil
				})).Return(&task.Task{ID: "3", Title: "A", Status: task.StatusPending}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "Task created successfully",
		},
		{
			name:        "error - past due date",
			body:        `{"title":"A","dueDate":"2000-01-01T00:00:00Z"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.Anything).Return(nil, validationErr("Due date cannot be in the past"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Due date cannot be in the past",
		},
		{
			name:           "error - malformed json",
			body:           `{"title":`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error - unparseable date",
			body:           `{"title":"A","dueDate":"next tuesday"}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "error - store failure still answers 400",
			body:        `{"title":"A"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.Anything).Return(nil, storeErr())
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "POST", "/api/tasks", tt.contentType, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedStatus == http.StatusCreated, env.Success)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, env.Message)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_CreateTask_UnknownContentTypeIsEmptyBody(t *testing.T) {
	mockService := new(MockTaskService)
	mockService.On("CreateTask", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
		return t.Title == ""
	})).Return(nil, validationErr("Error creating task: title: Task title is required"))

	w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "POST", "/api/tasks", "text/plain", `{"title":"ignored"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	mockService.AssertExpectations(t)
}

func TestTaskHandler_GetAllTasks(t *testing.T) {
	t.Run("success - filters from query", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("GetAllTasks", mock.Anything, task.Filter{Status: task.StatusPending, Priority: task.PriorityLow}).
			Return([]*task.Task{{ID: "1", Status: task.StatusPending}, {ID: "2", Status: task.StatusPending}}, nil)

		w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "GET", "/api/tasks?status=pending&priority=low", "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, env.Success)
		require.NotNil(t, env.Count)
		assert.Equal(t, 2, *env.Count)

		var data []map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Len(t, data, 2)
		mockService.AssertExpectations(t)
	})

	t.Run("success - empty list keeps count and array", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("GetAllTasks", mock.Anything, task.Filter{}).Return([]*task.Task{}, nil)

		w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "GET", "/api/tasks", "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, env.Count)
		assert.Zero(t, *env.Count)
		assert.JSONEq(t, `[]`, string(env.Data))
	})

	t.Run("error - 500", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("GetAllTasks", mock.Anything, task.Filter{}).Return(nil, storeErr())

		w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "GET", "/api/tasks", "", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.False(t, env.Success)
		assert.Equal(t, "Error fetching tasks: connection reset", env.Message)
	})
}

func TestTaskHandler_GetTaskStats_NotCapturedByID(t *testing.T) {
	mockService := new(MockTaskService)
	mockService.On("GetTaskStats", mock.Anything).Return(&task.Stats{Total: 3, Pending: 1, InProgress: 1, Completed: 1}, nil)

	w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "GET", "/api/tasks/stats", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":3,"pending":1,"inProgress":1,"completed":1}`, string(env.Data))
	mockService.AssertNotCalled(t, "GetTaskByID", mock.Anything, mock.Anything)
}

func TestTaskHandler_GetTaskStats_Error(t *testing.T) {
	mockService := new(MockTaskService)
	mockService.On("GetTaskStats", mock.Anything).Return(nil, storeErr())

	w, _ := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "GET", "/api/tasks/stats", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTaskHandler_GetTaskByID(t *testing.T) {
	tests := []struct {
		name           string
		mode           handlers.ErrorMode
		err            error
		expectedStatus int
	}{
		{name: "success", mode: handlers.ErrorModeLegacy, expectedStatus: http.StatusOK},
		{name: "not found", mode: handlers.ErrorModeLegacy, err: notFoundErr("42"), expectedStatus: http.StatusNotFound},
		{name: "store error is 404 in legacy mode", mode: handlers.ErrorModeLegacy, err: storeErr(), expectedStatus: http.StatusNotFound},
		{name: "store error is 500 in strict mode", mode: handlers.ErrorModeStrict, err: storeErr(), expectedStatus: http.StatusInternalServerError},
		{name: "not found in strict mode", mode: handlers.ErrorModeStrict, err: notFoundErr("42"), expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			if tt.err != nil {
				mockService.On("GetTaskByID", mock.Anything, "42").Return(nil, tt.err)
			} else {
				mockService.On("GetTaskByID", mock.Anything, "42").Return(&task.Task{ID: "42", Title: "x"}, nil)
			}

			w, env := do(t, newRouter(mockService, tt.mode), "GET", "/api/tasks/42", "", "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.err == nil {
				var data map[string]any
				require.NoError(t, json.Unmarshal(env.Data, &data))
				assert.Equal(t, "42", data["id"])
			} else {
				assert.NotEmpty(t, env.Message)
			}
		})
	}
}

func TestTaskHandler_UpdateTaskByID(t *testing.T) {
	completed := task.StatusCompleted

	t.Run("success - partial json patch", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("UpdateTask", mock.Anything, "7", mock.MatchedBy(func(p task.Patch) bool {
			return p.Status != nil && *p.Status == task.StatusInProgress && p.Title == nil && p.DueDate == nil
		})).Return(&task.Task{ID: "7", Status: task.StatusInProgress}, nil)

		w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "PUT", "/api/tasks/7", "application/json", `{"status":"in-progress"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Task updated successfully", env.Message)
		mockService.AssertExpectations(t)
	})

	t.Run("success - form patch only sets present keys", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("UpdateTask", mock.Anything, "7", mock.MatchedBy(func(p task.Patch) bool {
			return p.Title != nil && *p.Title == "renamed" && p.Status == nil && p.Description == nil
		})).Return(&task.Task{ID: "7", Title: "renamed"}, nil)

		w, _ := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "PUT", "/api/tasks/7",
			"application/x-www-form-urlencoded", url.Values{"title": {"renamed"}}.Encode())

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("error - rejected transition is 400", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("UpdateTask", mock.Anything, "7", task.Patch{Status: &completed}).
			Return(nil, validationErr("Cannot mark pending task as completed. Move to in-progress first."))

		w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "PUT", "/api/tasks/7", "application/json", `{"status":"completed"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Cannot mark pending task as completed. Move to in-progress first.", env.Message)
	})

	t.Run("error - not found is 400 in legacy mode", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("UpdateTask", mock.Anything, "7", mock.Anything).Return(nil, notFoundErr("7"))

		w, _ := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "PUT", "/api/tasks/7", "application/json", `{"title":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("error - not found is 404 in strict mode", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("UpdateTask", mock.Anything, "7", mock.Anything).Return(nil, notFoundErr("7"))

		w, _ := do(t, newRouter(mockService, handlers.ErrorModeStrict), "PUT", "/api/tasks/7", "application/json", `{"title":"x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTaskHandler_DeleteTaskByID(t *testing.T) {
	t.Run("success - message only", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("DeleteTask", mock.Anything, "9").Return(&task.Task{ID: "9"}, nil)

		w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "DELETE", "/api/tasks/9", "", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Task deleted successfully", env.Message)
		assert.Empty(t, env.Data)
	})

	t.Run("error - 404", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("DeleteTask", mock.Anything, "9").Return(nil, notFoundErr("9"))

		w, env := do(t, newRouter(mockService, handlers.ErrorModeLegacy), "DELETE", "/api/tasks/9", "", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, env.Success)
		assert.Equal(t, "Error fetching task: Task not found", env.Message)
	})
}

func TestNewTaskHandler_DefaultsToLegacy(t *testing.T) {
	mockService := new(MockTaskService)
	mockService.On("GetTaskStats", mock.Anything).Return(nil, notFoundErr("x"))

	w, _ := do(t, newRouter(mockService, handlers.ErrorMode("bogus")), "GET", "/api/tasks/stats", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
