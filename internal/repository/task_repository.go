package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tasktrack/internal/model"
)

// TaskFilter restricts a task listing. OwnerID is always applied;
// soft-deleted rows are excluded by GORM. Completed is a tri-state
// filter (nil means both). Search is a case-insensitive substring
// match over title or description.
type TaskFilter struct {
	OwnerID   uuid.UUID
	Completed *bool
	Search    string
}

// TaskRepository defines task persistence operations.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, filter TaskFilter, sort model.SortKey, offset, limit int) ([]model.Task, error)
	Count(ctx context.Context, filter TaskFilter) (int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create creates a new task record.
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID. Soft-deleted tasks are never returned.
func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns tasks matching filter in the order implied by sort.
// A non-positive limit disables pagination so callers can fetch the
// full filtered set.
func (r *taskRepository) List(ctx context.Context, filter TaskFilter, sort model.SortKey, offset, limit int) ([]model.Task, error) {
	q := r.applyFilter(r.db.WithContext(ctx), filter).Order(orderExpr(sort))
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	var tasks []model.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Count returns the number of tasks matching filter, ignoring pagination.
func (r *taskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx), filter).Model(&model.Task{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// UpdateFields applies a partial update to a single task.
func (r *taskRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete soft-deletes a task. The row stays in the table but becomes
// unreachable through every query in this repository.
func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id).Error
}

func (r *taskRepository) applyFilter(q *gorm.DB, filter TaskFilter) *gorm.DB {
	q = q.Where("user_id = ?", filter.OwnerID)
	if filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		q = q.Where("(title LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!')", pattern, pattern)
	}
	return q
}

// escapeLike neutralizes LIKE metacharacters so a search term is always
// matched literally. A term containing % or _ would otherwise act as a
// wildcard pattern instead of a substring. The escape character is !
// rather than backslash: MySQL parses a lone backslash out of the
// string literal and SQLite rejects a doubled one.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// orderExpr translates a sort key into a SQL ordering. Every key gets a
// created_at tiebreak so repeated queries over unchanged data return a
// stable sequence. Title ordering here is a byte-lowercase approximation;
// the service re-sorts title pages with a collator before slicing.
func orderExpr(sort model.SortKey) string {
	switch sort {
	case model.SortTitle:
		return "LOWER(title) ASC, created_at DESC"
	case model.SortDueDate:
		return "due_date ASC, created_at DESC"
	case model.SortCompleted:
		return "completed DESC, created_at DESC"
	case model.SortPriority:
		return priorityOrderExpr() + ", created_at DESC"
	case model.SortUpdatedAt:
		return "updated_at DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

// priorityOrderExpr ranks priorities high > medium > low with unknown
// values last, built from the shared rank table.
func priorityOrderExpr() string {
	var b strings.Builder
	b.WriteString("CASE priority")
	for _, p := range model.Priorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, p.Rank())
	}
	b.WriteString(" ELSE 0 END DESC")
	return b.String()
}
