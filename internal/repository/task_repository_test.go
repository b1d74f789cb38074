package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tasktrack/internal/model"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func seedTask(t *testing.T, db *gorm.DB, task model.Task) model.Task {
	t.Helper()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func TestTaskRepository_ListScopesToOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	stranger := uuid.New()
	seedTask(t, db, model.Task{UserID: owner, Title: "mine", Priority: model.PriorityLow})
	seedTask(t, db, model.Task{UserID: stranger, Title: "theirs", Priority: model.PriorityLow})

	tasks, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "mine", tasks[0].Title)

	total, err := repo.Count(ctx, TaskFilter{OwnerID: owner})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestTaskRepository_ListExcludesSoftDeleted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	keep := seedTask(t, db, model.Task{UserID: owner, Title: "keep", Priority: model.PriorityLow})
	gone := seedTask(t, db, model.Task{UserID: owner, Title: "gone", Priority: model.PriorityLow})

	require.NoError(t, repo.Delete(ctx, gone.ID))

	tasks, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, keep.ID, tasks[0].ID)

	_, err = repo.FindByID(ctx, gone.ID)
	assert.Equal(t, gorm.ErrRecordNotFound, err)

	total, err := repo.Count(ctx, TaskFilter{OwnerID: owner})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestTaskRepository_SearchMatchesTitleOrDescription(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	seedTask(t, db, model.Task{UserID: owner, Title: "buy groceries", Priority: model.PriorityLow})
	seedTask(t, db, model.Task{UserID: owner, Title: "chores", Description: "grocery run", Priority: model.PriorityLow})
	seedTask(t, db, model.Task{UserID: owner, Title: "taxes", Priority: model.PriorityLow})

	tasks, err := repo.List(ctx, TaskFilter{OwnerID: owner, Search: "grocer"}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestTaskRepository_SearchTreatsWildcardsLiterally(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	seedTask(t, db, model.Task{UserID: owner, Title: "alpha beta", Priority: model.PriorityLow})
	seedTask(t, db, model.Task{UserID: owner, Title: "literal a%b here", Priority: model.PriorityLow})
	seedTask(t, db, model.Task{UserID: owner, Title: "under_score", Priority: model.PriorityLow})
	seedTask(t, db, model.Task{UserID: owner, Title: "ship it!", Priority: model.PriorityLow})

	// % must not act as a multi-character wildcard.
	tasks, err := repo.List(ctx, TaskFilter{OwnerID: owner, Search: "a%b"}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "literal a%b here", tasks[0].Title)

	// _ must not act as a single-character wildcard.
	tasks, err = repo.List(ctx, TaskFilter{OwnerID: owner, Search: "alpha_beta"}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	tasks, err = repo.List(ctx, TaskFilter{OwnerID: owner, Search: "under_score"}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "under_score", tasks[0].Title)

	// The escape character itself is searchable.
	tasks, err = repo.List(ctx, TaskFilter{OwnerID: owner, Search: "it!"}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "ship it!", tasks[0].Title)

	total, err := repo.Count(ctx, TaskFilter{OwnerID: owner, Search: "a%b"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestTaskRepository_CompletedFilterIsTriState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	seedTask(t, db, model.Task{UserID: owner, Title: "done", Completed: true, Priority: model.PriorityLow})
	seedTask(t, db, model.Task{UserID: owner, Title: "pending", Priority: model.PriorityLow})

	both, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	completed := true
	done, err := repo.List(ctx, TaskFilter{OwnerID: owner, Completed: &completed}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "done", done[0].Title)

	completed = false
	pending, err := repo.List(ctx, TaskFilter{OwnerID: owner, Completed: &completed}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "pending", pending[0].Title)
}

func TestTaskRepository_PriorityOrderFollowsRankTable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedTask(t, db, model.Task{UserID: owner, Title: "m", Priority: model.PriorityMedium, CreatedAt: base})
	seedTask(t, db, model.Task{UserID: owner, Title: "l", Priority: model.PriorityLow, CreatedAt: base.Add(time.Minute)})
	seedTask(t, db, model.Task{UserID: owner, Title: "h", Priority: model.PriorityHigh, CreatedAt: base.Add(2 * time.Minute)})
	// Unknown priorities rank below low and sort last.
	seedTask(t, db, model.Task{UserID: owner, Title: "x", Priority: "unknown", CreatedAt: base.Add(3 * time.Minute)})

	tasks, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortPriority, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	for i := 0; i < len(tasks)-1; i++ {
		assert.GreaterOrEqual(t, tasks[i].Priority.Rank(), tasks[i+1].Priority.Rank())
	}
	assert.Equal(t, "h", tasks[0].Title)
	assert.Equal(t, "x", tasks[3].Title)
}

func TestTaskRepository_CompletedSortPutsCompletedFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedTask(t, db, model.Task{UserID: owner, Title: "old done", Completed: true, Priority: model.PriorityLow, CreatedAt: base})
	seedTask(t, db, model.Task{UserID: owner, Title: "pending", Priority: model.PriorityLow, CreatedAt: base.Add(time.Minute)})
	seedTask(t, db, model.Task{UserID: owner, Title: "new done", Completed: true, Priority: model.PriorityLow, CreatedAt: base.Add(2 * time.Minute)})

	tasks, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortCompleted, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	// Completed first, newest first within each group.
	assert.Equal(t, "new done", tasks[0].Title)
	assert.Equal(t, "old done", tasks[1].Title)
	assert.Equal(t, "pending", tasks[2].Title)
}

func TestTaskRepository_DueDateSortIsSoonestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	seedTask(t, db, model.Task{UserID: owner, Title: "later", DueDate: base.AddDate(0, 0, 5), Priority: model.PriorityLow})
	seedTask(t, db, model.Task{UserID: owner, Title: "soon", DueDate: base, Priority: model.PriorityLow})

	tasks, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortDueDate, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "soon", tasks[0].Title)
	assert.Equal(t, "later", tasks[1].Title)
}

func TestTaskRepository_CreatedAtSortIsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedTask(t, db, model.Task{UserID: owner, Title: "first", Priority: model.PriorityLow, CreatedAt: base})
	seedTask(t, db, model.Task{UserID: owner, Title: "second", Priority: model.PriorityLow, CreatedAt: base.Add(time.Hour)})

	tasks, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortCreatedAt, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "second", tasks[0].Title)
}

func TestTaskRepository_UpdatedAtSortBreaksTiesByCreation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	touched := base.Add(time.Hour)
	// Identical update times, distinct creation times.
	seedTask(t, db, model.Task{UserID: owner, Title: "older", Priority: model.PriorityLow, CreatedAt: base, UpdatedAt: touched})
	seedTask(t, db, model.Task{UserID: owner, Title: "newer", Priority: model.PriorityLow, CreatedAt: base.Add(time.Minute), UpdatedAt: touched})

	tasks, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortUpdatedAt, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "newer", tasks[0].Title)
	assert.Equal(t, "older", tasks[1].Title)
}

func TestTaskRepository_PaginationWindow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedTask(t, db, model.Task{UserID: owner, Title: "t", Priority: model.PriorityLow, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	page, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortCreatedAt, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	// Count ignores pagination.
	total, err := repo.Count(ctx, TaskFilter{OwnerID: owner})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	// Non-positive limit returns the full set.
	all, err := repo.List(ctx, TaskFilter{OwnerID: owner}, model.SortCreatedAt, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestTaskRepository_UpdateFieldsIsPartial(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	task := seedTask(t, db, model.Task{UserID: owner, Title: "before", Description: "stays", Priority: model.PriorityLow})

	require.NoError(t, repo.UpdateFields(ctx, task.ID, map[string]interface{}{"title": "after"}))

	updated, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, "stays", updated.Description)
	assert.Equal(t, model.PriorityLow, updated.Priority)
}
