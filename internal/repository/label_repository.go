package repository

import (
	"errors"

	"github.com/itmsdev/itms-api/internal/models"
	"gorm.io/gorm"
)

// GormLabelRepository is a GORM implementation of LabelRepository
type GormLabelRepository struct {
	db *gorm.DB
}

// NewLabelRepository creates a new LabelRepository
func NewLabelRepository(db *gorm.DB) LabelRepository {
	return &GormLabelRepository{db: db}
}

// Create creates a label
func (r *GormLabelRepository) Create(label *models.Label) error {
	return r.db.Create(label).Error
}

// FindByID finds a label by ID
func (r *GormLabelRepository) FindByID(id uint64) (*models.Label, error) {
	var label models.Label
	if err := r.db.First(&label, id).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

// ListByProject lists a project's labels ordered by name
func (r *GormLabelRepository) ListByProject(projectID uint64) ([]models.Label, error) {
	var labels []models.Label
	if err := r.db.Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&labels).Error; err != nil {
		return nil, err
	}
	return labels, nil
}

// Delete removes a label and its issue links in one transaction.
func (r *GormLabelRepository) Delete(id uint64) (bool, error) {
	found := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("label_id = ?", id).Delete(&models.IssueLabel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Label{}, id)
		if result.Error != nil {
			return result.Error
		}
		found = result.RowsAffected > 0
		return nil
	})
	return found, err
}

// Attach links a label to an issue. The unique key on (issue_id, label_id)
// is the authoritative duplicate check; the pre-read only shapes the error.
func (r *GormLabelRepository) Attach(issueID, labelID uint64) error {
	var existing models.IssueLabel
	err := r.db.Where("issue_id = ? AND label_id = ?", issueID, labelID).
		First(&existing).Error
	if err == nil {
		return ErrLabelAttached
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	link := models.IssueLabel{IssueID: issueID, LabelID: labelID}
	if err := r.db.Create(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrLabelAttached
		}
		return err
	}
	return nil
}

// Detach unlinks a label from an issue
func (r *GormLabelRepository) Detach(issueID, labelID uint64) error {
	result := r.db.Where("issue_id = ? AND label_id = ?", issueID, labelID).
		Delete(&models.IssueLabel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLabelNotAttached
	}
	return nil
}
