package models

import (
	"time"
)

// IssueHistory is an append-only change log row. Rows are written by the
// history recorder as a side effect of issue mutation and are never
// updated or deleted.
type IssueHistory struct {
	ID        uint64    `gorm:"primarykey" json:"history_id"`
	IssueID   uint64    `gorm:"not null;index" json:"issue_id"`
	UserID    uint64    `gorm:"not null" json:"user_id"`
	Field     string    `gorm:"type:varchar(50);not null" json:"field"`
	OldValue  string    `gorm:"type:text" json:"old_value"`
	NewValue  string    `gorm:"type:text" json:"new_value"`
	ChangedAt time.Time `gorm:"index" json:"changed_at"`
}
