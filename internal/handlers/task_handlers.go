package handlers

import (
	"net/http"
	"net/url"
	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService Service
	mode        ErrorMode
}

func NewTaskHandler(taskService Service, mode ErrorMode) *TaskHandler {
	if !mode.Valid() {
		mode = ErrorModeLegacy
	}
	return &TaskHandler{
		TaskService: taskService,
		mode:        mode,
	}
}

// Routes registers the task endpoints. The literal /stats route must stay
// ahead of the /{id} wildcard.
func (s *TaskHandler) Routes(r chi.Router) {
	r.Post("/", s.CreateTask)           // POST /api/tasks
	r.Get("/", s.GetAllTasks)           // GET /api/tasks
	r.Get("/stats", s.GetTaskStats)     // GET /api/tasks/stats
	r.Get("/{id}", s.GetTaskByID)       // GET /api/tasks/{id}
	r.Put("/{id}", s.UpdateTaskByID)    // PUT /api/tasks/{id}
	r.Delete("/{id}", s.DeleteTaskByID) // DELETE /api/tasks/{id}
}

func (s *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request dto.CreateTaskRequest
	err := decodeBody(r, &request, func(form url.Values) error {
		var err error
		request, err = dto.CreateFromForm(form)
		return err
	})
	if err != nil {
		logger.Warn("HTTP: failed to read request body", zap.Error(err), zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.TaskService.CreateTask(r.Context(), request.ToTask())
	if err != nil {
		s.handleError(w, r, http.StatusBadRequest, "create_task", err)
		return
	}

	logger.Info("HTTP_OUT: task created",
		zap.String("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithSuccess(w, http.StatusCreated, "Task created successfully", dto.FromTask(created))
}

func (s *TaskHandler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := task.Filter{
		Status:   task.Status(query.Get("status")),
		Priority: task.Priority(query.Get("priority")),
	}

	tasks, err := s.TaskService.GetAllTasks(r.Context(), filter)
	if err != nil {
		s.handleError(w, r, http.StatusInternalServerError, "get_all_tasks", err)
		return
	}

	responseWithList(w, dto.FromTaskList(tasks), len(tasks))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.TaskService.GetTaskByID(r.Context(), id)
	if err != nil {
		s.handleError(w, r, http.StatusNotFound, "get_task", err)
		return
	}

	responseWithSuccess(w, http.StatusOK, "", dto.FromTask(t))
}

func (s *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	var request dto.UpdateTaskRequest
	err := decodeBody(r, &request, func(form url.Values) error {
		var err error
		request, err = dto.UpdateFromForm(form)
		return err
	})
	if err != nil {
		logger.Warn("HTTP: failed to read request body", zap.Error(err), zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.TaskService.UpdateTask(r.Context(), id, request.ToPatch())
	if err != nil {
		s.handleError(w, r, http.StatusBadRequest, "update_task", err)
		return
	}

	logger.Info("HTTP_OUT: task updated",
		zap.String("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithSuccess(w, http.StatusOK, "Task updated successfully", dto.FromTask(updated))
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.TaskService.DeleteTask(r.Context(), id); err != nil {
		s.handleError(w, r, http.StatusNotFound, "delete_task", err)
		return
	}

	logger.Info("HTTP_OUT: task deleted", zap.String("task_id", id))
	responseWithSuccess(w, http.StatusOK, "Task deleted successfully", nil)
}

func (s *TaskHandler) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.TaskService.GetTaskStats(r.Context())
	if err != nil {
		s.handleError(w, r, http.StatusInternalServerError, "get_stats", err)
		return
	}

	responseWithSuccess(w, http.StatusOK, "", stats)
}

// HealthCheck reports process liveness only; it does not touch the store.
func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	responseWithJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "Server is running",
	})
}
