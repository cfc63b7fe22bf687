package inmemory

import (
	"context"
	"sort"
	"sync"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskStorage struct {
	storage map[string]*task.Task
	mtx     *sync.RWMutex
	ids     []string
	now     func() time.Time
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[string]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []string{},
		now:     time.Now,
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *TaskStorage) Close() {
	logger.Info("Repository: in-memory storage closed")
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) (*task.Task, error) {
	created := clone(taskToCreate)
	created.ApplyDefaults()
	if err := created.Validate(); err != nil {
		return nil, repo.Wrap(repo.OpCreate, err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := s.now()
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	s.storage[created.ID] = created
	s.ids = append(s.ids, created.ID)

	logger.Debug("Repository: task stored", zap.String("task_id", created.ID))
	return clone(created), nil
}

func (s *TaskStorage) FindAll(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	// walk ids backwards so equal createdAt values keep newest-inserted first
	for i := len(s.ids) - 1; i >= 0; i-- {
		t := s.storage[s.ids[i]]
		if matches(t, filter) {
			res = append(res, clone(t))
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	return res, nil
}

func (s *TaskStorage) FindByID(ctx context.Context, id string) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.storage[id]
	if !ok {
		return nil, repo.Wrap(repo.OpFetch, repo.ErrNotFound)
	}
	return clone(t), nil
}

func (s *TaskStorage) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, repo.Wrap(repo.OpUpdate, err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.storage[id]
	if !ok {
		return nil, repo.Wrap(repo.OpUpdate, repo.ErrNotFound)
	}

	patch.Apply(t)
	t.UpdatedAt = s.now()

	return clone(t), nil
}

func (s *TaskStorage) Delete(ctx context.Context, id string) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.storage[id]
	if !ok {
		return nil, repo.Wrap(repo.OpDelete, repo.ErrNotFound)
	}

	delete(s.storage, id)
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
	return clone(t), nil
}

func (s *TaskStorage) Count(ctx context.Context, filter task.Filter) (int64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var n int64
	for _, t := range s.storage {
		if matches(t, filter) {
			n++
		}
	}
	return n, nil
}

func (s *TaskStorage) DeleteAll(ctx context.Context) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	n := int64(len(s.storage))
	s.storage = make(map[string]*task.Task)
	s.ids = []string{}
	return n, nil
}

func matches(t *task.Task, filter task.Filter) bool {
	if filter.Status != "" && t.Status != filter.Status {
		return false
	}
	if filter.Priority != "" && t.Priority != filter.Priority {
		return false
	}
	return true
}

func clone(t *task.Task) *task.Task {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return &c
}
