// Package history records issue change log rows. The tracker core only
// writes entries through the Recorder interface and reads them back for the
// history endpoint; it never interprets or rewrites past rows.
package history

import (
	"time"

	"github.com/itmsdev/itms-api/internal/models"
	"gorm.io/gorm"
)

// Recorder appends and reads issue history entries.
type Recorder interface {
	// Record appends one change entry for an issue, attributed to the
	// acting user.
	Record(issueID, userID uint64, field, oldValue, newValue string) error

	// ListByIssue returns an issue's history ordered by change time
	// ascending.
	ListByIssue(issueID uint64) ([]models.IssueHistory, error)
}

// GormRecorder is a GORM implementation of Recorder
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder creates a new GormRecorder
func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

// Record appends one history row.
func (r *GormRecorder) Record(issueID, userID uint64, field, oldValue, newValue string) error {
	entry := models.IssueHistory{
		IssueID:   issueID,
		UserID:    userID,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedAt: time.Now(),
	}
	return r.db.Create(&entry).Error
}

// ListByIssue returns history rows ascending by change time.
func (r *GormRecorder) ListByIssue(issueID uint64) ([]models.IssueHistory, error) {
	var entries []models.IssueHistory
	if err := r.db.Where("issue_id = ?", issueID).
		Order("changed_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
