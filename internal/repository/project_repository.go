package repository

import (
	"github.com/itmsdev/itms-api/internal/authz"
	"github.com/itmsdev/itms-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// CreateWithLead creates the project row and the creator's LEAD membership atomically.
func (r *GormProjectRepository) CreateWithLead(project *models.Project, member *models.ProjectMembership) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		member.ProjectID = project.ID
		return tx.Create(member).Error
	})
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListVisible returns public projects plus the user's projects, ordered by
// project key, together with the user's role per project.
func (r *GormProjectRepository) ListVisible(userID uint64) ([]models.Project, map[uint64]models.ProjectRole, error) {
	var memberships []models.ProjectMembership
	if err := r.db.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, nil, err
	}

	roles := make(map[uint64]models.ProjectRole, len(memberships))
	memberProjectIDs := make([]uint64, 0, len(memberships))
	for _, m := range memberships {
		roles[m.ProjectID] = m.Role
		memberProjectIDs = append(memberProjectIDs, m.ProjectID)
	}

	query := r.db.Order("project_key ASC")
	if len(memberProjectIDs) > 0 {
		query = query.Where("is_public = ? OR id IN ?", true, memberProjectIDs)
	} else {
		query = query.Where("is_public = ?", true)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, nil, err
	}

	return projects, roles, nil
}

// Update persists changes to a project
func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// Delete removes the project and all owned rows in one transaction.
func (r *GormProjectRepository) Delete(id uint64) (bool, error) {
	found := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var issueIDs []uint64
		if err := tx.Model(&models.Issue{}).Where("project_id = ?", id).
			Pluck("id", &issueIDs).Error; err != nil {
			return err
		}

		if len(issueIDs) > 0 {
			if err := tx.Where("issue_id IN ?", issueIDs).Delete(&models.IssueLabel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("issue_id IN ?", issueIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("issue_id IN ?", issueIDs).Delete(&models.IssueHistory{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.Issue{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Label{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMembership{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Project{}, id)
		if result.Error != nil {
			return result.Error
		}
		found = result.RowsAffected > 0
		return nil
	})
	return found, err
}

// FindMember finds a specific project membership
func (r *GormProjectRepository) FindMember(projectID, userID uint64) (*models.ProjectMembership, error) {
	var member models.ProjectMembership
	if err := r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists project members ordered LEAD, DEVELOPER, VIEWER, then username.
func (r *GormProjectRepository) ListMembers(projectID uint64) ([]models.ProjectMembership, error) {
	var members []models.ProjectMembership
	err := r.db.
		Joins("JOIN users ON users.id = project_memberships.user_id").
		Where("project_memberships.project_id = ?", projectID).
		Order("CASE project_memberships.role WHEN 'LEAD' THEN 0 WHEN 'DEVELOPER' THEN 1 ELSE 2 END, users.username ASC").
		Preload("User").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// AddMember adds a membership row
func (r *GormProjectRepository) AddMember(member *models.ProjectMembership) error {
	return r.db.Create(member).Error
}

// ChangeMemberRole updates a member's role. The membership rows are locked
// for the LEAD count so two concurrent demotions cannot both pass the check.
func (r *GormProjectRepository) ChangeMemberRole(projectID, userID uint64, role models.ProjectRole) (bool, error) {
	changed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var members []models.ProjectMembership
		if err := forUpdate(tx).Where("project_id = ?", projectID).
			Find(&members).Error; err != nil {
			return err
		}

		var current *models.ProjectMembership
		for i := range members {
			if members[i].UserID == userID {
				current = &members[i]
				break
			}
		}
		if current == nil {
			return ErrMemberNotFound
		}

		if current.Role == role {
			// no-op, reported to the caller via changed=false
			return nil
		}

		if current.Role == models.RoleLead && authz.LeadCount(members) <= 1 {
			return ErrLastLead
		}

		if err := tx.Model(&models.ProjectMembership{}).
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Update("role", role).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// RemoveMember deletes a membership. The member's issue assignments in the
// project are cleared in the same transaction.
func (r *GormProjectRepository) RemoveMember(projectID, userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var members []models.ProjectMembership
		if err := forUpdate(tx).Where("project_id = ?", projectID).
			Find(&members).Error; err != nil {
			return err
		}

		var target *models.ProjectMembership
		for i := range members {
			if members[i].UserID == userID {
				target = &members[i]
				break
			}
		}
		if target == nil {
			return ErrMemberNotFound
		}

		if target.Role == models.RoleLead && authz.LeadCount(members) <= 1 {
			return ErrLastLead
		}

		if err := tx.Model(&models.Issue{}).
			Where("project_id = ? AND assignee_id = ?", projectID, userID).
			Update("assignee_id", nil).Error; err != nil {
			return err
		}

		return tx.Where("project_id = ? AND user_id = ?", projectID, userID).
			Delete(&models.ProjectMembership{}).Error
	})
}
