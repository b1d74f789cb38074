package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"tasktrack/internal/cache"
	"tasktrack/internal/errors"
	"tasktrack/internal/model"
	"tasktrack/internal/repository"
)

const (
	defaultPage  = 1
	defaultLimit = 10

	taskCacheTTL = 5 * time.Minute
)

// ListTasksParams carries the filter, sort and pagination inputs of a
// task listing. Malformed values are normalized, never rejected:
// page < 1 becomes 1, limit < 1 becomes 10 and an unknown SortBy falls
// back to createdAt.
type ListTasksParams struct {
	Page      int
	Limit     int
	Completed *bool
	Search    string
	SortBy    string
}

// Pagination describes the page that was returned and the size of the
// full filtered set.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks      []model.Task `json:"tasks"`
	Pagination Pagination   `json:"pagination"`
}

// CreateTaskInput holds the fields of a new task. DueDate defaults to
// the creation time and Priority to low when omitted.
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    model.Priority
}

// TaskPatch is a partial task update. Only non-nil fields are applied.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *model.Priority
}

// TaskService handles task listing and single-task mutations. Every
// operation takes the requester ID explicitly and never touches tasks
// of other users.
type TaskService interface {
	ListTasks(ctx context.Context, ownerID uuid.UUID, params ListTasksParams) (*TaskPage, error)
	GetTask(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error)
	CreateTask(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, id, ownerID uuid.UUID, patch TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id, ownerID uuid.UUID) error
	ToggleComplete(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error)
}

type taskService struct {
	repo  repository.TaskRepository
	cache *cache.Client
}

// NewTaskService creates a new task service.
func NewTaskService(repo repository.TaskRepository, cache *cache.Client) TaskService {
	return &taskService{
		repo:  repo,
		cache: cache,
	}
}

func (s *taskService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("task:%s", id.String())
}

// ListTasks returns one page of the requester's tasks. Search matches a
// case-insensitive substring of title or description. The page fetch
// and the total count run concurrently; both are over the same filter,
// so total always reflects the filtered-but-unpaginated set.
func (s *taskService) ListTasks(ctx context.Context, ownerID uuid.UUID, params ListTasksParams) (*TaskPage, error) {
	page := params.Page
	if page < 1 {
		page = defaultPage
	}
	limit := params.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	sortKey := model.ParseSortKey(params.SortBy)

	filter := repository.TaskFilter{
		OwnerID:   ownerID,
		Completed: params.Completed,
		Search:    params.Search,
	}
	offset := (page - 1) * limit

	var (
		tasks []model.Task
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if sortKey == model.SortTitle {
			// The store cannot collate titles case-insensitively with
			// locale rules, so fetch the full filtered set, sort, then
			// slice. Sorting always happens before pagination.
			all, err := s.repo.List(gctx, filter, sortKey, 0, 0)
			if err != nil {
				return err
			}
			sortByTitle(all)
			tasks = pageSlice(all, offset, limit)
			return nil
		}
		var err error
		tasks, err = s.repo.List(gctx, filter, sortKey, offset, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	if tasks == nil {
		tasks = []model.Task{}
	}
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &TaskPage{
		Tasks: tasks,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// GetTask returns a single task after the ownership check, with caching.
func (s *taskService) GetTask(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	// Try cache first. The ownership check still applies to cached hits.
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.Task
		if err := json.Unmarshal(data, &cached); err == nil {
			if cached.UserID != ownerID {
				return nil, errors.ErrTaskForbidden
			}
			return &cached, nil
		}
	}

	task, err := s.ownedTask(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(task); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, taskCacheTTL)
	}
	return task, nil
}

// CreateTask creates a task owned by the requester, filling the
// due-date and priority defaults once at write time.
func (s *taskService) CreateTask(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*model.Task, error) {
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityLow
	}
	if !priority.Valid() {
		return nil, errors.ErrInvalidPriority
	}

	dueDate := time.Now()
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}

	task := &model.Task{
		UserID:      ownerID,
		Title:       input.Title,
		Description: input.Description,
		DueDate:     dueDate,
		Priority:    priority,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// UpdateTask merges the provided fields into the task. Fields not set
// on the patch are left untouched. An empty patch is a no-op.
func (s *taskService) UpdateTask(ctx context.Context, id, ownerID uuid.UUID, patch TaskPatch) (*model.Task, error) {
	task, err := s.ownedTask(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.DueDate != nil {
		fields["due_date"] = *patch.DueDate
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, errors.ErrInvalidPriority
		}
		fields["priority"] = *patch.Priority
	}
	if len(fields) == 0 {
		return task, nil
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	s.invalidate(ctx, id)

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}
	return updated, nil
}

// DeleteTask soft-deletes the task after the ownership check.
// Subsequent reads and mutations report it as not found.
func (s *taskService) DeleteTask(ctx context.Context, id, ownerID uuid.UUID) error {
	if _, err := s.ownedTask(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// ToggleComplete flips the stored completed flag. The negation reads
// the stored value, not a client-supplied one, so a double submit ends
// up back where it started instead of desynchronizing.
func (s *taskService) ToggleComplete(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	task, err := s.ownedTask(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"completed": !task.Completed}); err != nil {
		return nil, fmt.Errorf("toggle task: %w", err)
	}
	s.invalidate(ctx, id)

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}
	return updated, nil
}

// ownedTask is the shared mutation guard: existence is checked before
// ownership, so a missing or soft-deleted task is always not-found,
// even for non-owners.
func (s *taskService) ownedTask(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	if task.UserID != ownerID {
		return nil, errors.ErrTaskForbidden
	}
	return task, nil
}

func (s *taskService) invalidate(ctx context.Context, id uuid.UUID) {
	_ = s.cache.Delete(ctx, s.cacheKey(id))
}

// sortByTitle orders tasks by title ascending with a case-insensitive
// collator, keeping the incoming order for equal titles.
func sortByTitle(tasks []model.Task) {
	c := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(tasks, func(i, j int) bool {
		return c.CompareString(tasks[i].Title, tasks[j].Title) < 0
	})
}

// pageSlice takes the offset/limit window of an already sorted list.
func pageSlice(tasks []model.Task, offset, limit int) []model.Task {
	if offset >= len(tasks) {
		return []model.Task{}
	}
	end := offset + limit
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[offset:end]
}
