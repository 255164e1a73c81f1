package repository

import (
	"github.com/itmsdev/itms-api/internal/database"
	"github.com/itmsdev/itms-api/internal/models"
	"gorm.io/gorm"
)

// GormIssueRepository is a GORM implementation of IssueRepository
type GormIssueRepository struct {
	db *gorm.DB
}

// NewIssueRepository creates a new IssueRepository
func NewIssueRepository(db *gorm.DB) IssueRepository {
	return &GormIssueRepository{db: db}
}

// CreateWithLabels creates an issue and attaches labels atomically. The
// project row is locked while the next issue number is computed, so
// concurrent creations in the same project serialize and numbers stay
// strictly increasing. Numbers are never reused; gaps are acceptable.
func (r *GormIssueRepository) CreateWithLabels(issue *models.Issue, labelIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := forUpdate(tx).First(&project, issue.ProjectID).Error; err != nil {
			return err
		}

		var next int64
		if err := tx.Model(&models.Issue{}).
			Where("project_id = ?", issue.ProjectID).
			Select("COALESCE(MAX(issue_number), 0) + 1").
			Scan(&next).Error; err != nil {
			return err
		}
		issue.IssueNumber = next

		if err := tx.Create(issue).Error; err != nil {
			return err
		}

		if len(labelIDs) == 0 {
			return nil
		}

		var count int64
		if err := tx.Model(&models.Label{}).
			Where("id IN ? AND project_id = ?", labelIDs, issue.ProjectID).
			Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(labelIDs)) {
			return ErrLabelNotInProject
		}

		links := make([]models.IssueLabel, len(labelIDs))
		for i, labelID := range labelIDs {
			links[i] = models.IssueLabel{IssueID: issue.ID, LabelID: labelID}
		}
		return tx.Create(&links).Error
	})
}

// FindByID finds an issue by ID with optional preloading
func (r *GormIssueRepository) FindByID(id uint64, preload ...string) (*models.Issue, error) {
	var issue models.Issue
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&issue, id).Error; err != nil {
		return nil, err
	}

	return &issue, nil
}

// List retrieves a project's issues ordered by issue number ascending
func (r *GormIssueRepository) List(filter IssueFilter) ([]models.Issue, int64, error) {
	query := r.db.Model(&models.Issue{}).Where("project_id = ?", filter.ProjectID)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var issues []models.Issue
	if err := query.Order("issue_number ASC").
		Scopes(database.Paginate(filter.Page, filter.PageSize)).
		Preload("Labels").Find(&issues).Error; err != nil {
		return nil, 0, err
	}

	return issues, total, nil
}

// Save persists changes to an issue
func (r *GormIssueRepository) Save(issue *models.Issue) error {
	return r.db.Save(issue).Error
}
