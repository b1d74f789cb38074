package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Priority is the task priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the accepted priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank maps a priority to its ordering weight. Unknown values rank
// below low so they sort last. The rank is used only for ordering,
// never stored.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Priorities lists the accepted levels from highest to lowest rank.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// SortKey is a field tasks can be ordered by.
type SortKey string

const (
	SortTitle     SortKey = "title"
	SortCreatedAt SortKey = "createdAt"
	SortCompleted SortKey = "completed"
	SortUpdatedAt SortKey = "updatedAt"
	SortDueDate   SortKey = "dueDate"
	SortPriority  SortKey = "priority"
)

// ParseSortKey validates s against the sort-key allow-list. Anything
// else, including the empty string, silently falls back to createdAt.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortTitle, SortCreatedAt, SortCompleted, SortUpdatedAt, SortDueDate, SortPriority:
		return SortKey(s)
	}
	return SortCreatedAt
}

// Task represents a single to-do item owned by a user. The owner never
// changes after creation. Soft-deleted tasks are invisible to all
// queries and mutations.
type Task struct {
	ID          uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID      `json:"user_id" gorm:"type:char(36);not null;index"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	DueDate     time.Time      `json:"due_date"`
	Priority    Priority       `json:"priority" gorm:"size:10;default:'low';index"`
	Completed   bool           `json:"completed" gorm:"default:false;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
