package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itmsdev/itms-api/internal/authz"
	"github.com/itmsdev/itms-api/internal/models"
	"github.com/itmsdev/itms-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrProjectKeyTaken    = errors.New("project key already exists")
	ErrKeyAndNameRequired = errors.New("project key and name are required")
	ErrNotProjectMember   = errors.New("not a member of this project")
	ErrMemberNotFound     = errors.New("member not found in this project")
	ErrAlreadyMember      = errors.New("user is already a member of this project")
	ErrInvalidRole        = errors.New("invalid role")
	// ErrLastLead and ErrLastLeadSelf both mean the last-LEAD invariant
	// blocked the operation; the self variant lets handlers word the
	// message for a LEAD acting on their own membership.
	ErrLastLead          = errors.New("project must retain at least one LEAD")
	ErrLastLeadSelf      = errors.New("cannot change own role: project must retain at least one LEAD")
	ErrLabelNameRequired = errors.New("label name is required")
	ErrLabelNameTaken    = errors.New("label already exists in this project")
)

// ProjectService provides business logic for projects, memberships, and the
// project label taxonomy.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	labelRepo   repository.LabelRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository, labelRepo repository.LabelRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		labelRepo:   labelRepo,
	}
}

// ListProjects returns every project visible to the user, ordered by project
// key, plus the user's role per project ("" for non-member).
func (s *ProjectService) ListProjects(userID uint64) ([]models.Project, map[uint64]models.ProjectRole, error) {
	return s.projectRepo.ListVisible(userID)
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Key         string
	Name        string
	Description string
	IsPublic    bool
	CreatorID   uint64
}

// CreateProject creates the project and makes the creator its LEAD.
func (s *ProjectService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	key := strings.TrimSpace(input.Key)
	name := strings.TrimSpace(input.Name)
	if key == "" || name == "" {
		return nil, ErrKeyAndNameRequired
	}

	project := &models.Project{
		ProjectKey:  key,
		Name:        name,
		Description: input.Description,
		IsPublic:    input.IsPublic,
		CreatedBy:   input.CreatorID,
	}

	member := &models.ProjectMembership{
		UserID:   input.CreatorID,
		Role:     models.RoleLead,
		JoinedAt: time.Now(),
	}

	if err := s.projectRepo.CreateWithLead(project, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrProjectKeyTaken
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// Visibility resolves the project and the user's view of it. The returned
// project is nil when the row is absent.
func (s *ProjectService) Visibility(projectID, userID uint64) (*models.Project, authz.ProjectVisibility, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.Visibility(nil, nil), nil
		}
		return nil, authz.ProjectVisibility{}, fmt.Errorf("failed to find project: %w", err)
	}

	membership, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ProjectVisibility{}, fmt.Errorf("failed to find membership: %w", err)
	}

	return project, authz.Visibility(project, membership), nil
}

// GetProject returns a project visible to the user, or ErrProjectNotFound.
// Private projects are indistinguishable from absent ones here.
func (s *ProjectService) GetProject(projectID, userID uint64) (*models.Project, models.ProjectRole, error) {
	project, vis, err := s.Visibility(projectID, userID)
	if err != nil {
		return nil, "", err
	}
	if !vis.Visible {
		return nil, "", ErrProjectNotFound
	}
	return project, vis.Role, nil
}

// EditProjectInput holds the fields a LEAD may change on a project.
type EditProjectInput struct {
	Key         *string
	Name        *string
	Description *string
}

// EditProject applies a partial update to a project. Callers are expected to
// have verified the LEAD role already.
func (s *ProjectService) EditProject(project *models.Project, input EditProjectInput) error {
	if input.Key == nil && input.Name == nil && input.Description == nil {
		return ErrNoUpdateFields
	}

	if input.Key != nil {
		project.ProjectKey = strings.TrimSpace(*input.Key)
	}
	if input.Name != nil {
		project.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		project.Description = *input.Description
	}

	if project.ProjectKey == "" || project.Name == "" {
		return ErrKeyAndNameRequired
	}

	if err := s.projectRepo.Update(project); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrProjectKeyTaken
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// UpdateVisibility flips the public flag.
func (s *ProjectService) UpdateVisibility(project *models.Project, isPublic bool) error {
	project.IsPublic = isPublic
	if err := s.projectRepo.Update(project); err != nil {
		return fmt.Errorf("failed to update project visibility: %w", err)
	}
	return nil
}

// DeleteProject removes a project and everything it owns. A zero rowcount
// means the project row was already gone and is reported as not found.
func (s *ProjectService) DeleteProject(projectID uint64) error {
	found, err := s.projectRepo.Delete(projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if !found {
		return ErrProjectNotFound
	}
	return nil
}

// ListMembers returns a visible project's members. Unlike project reads,
// this boundary distinguishes a missing project (not found) from a private
// project the user cannot see (not a member).
func (s *ProjectService) ListMembers(projectID, userID uint64) ([]models.ProjectMembership, error) {
	_, vis, err := s.Visibility(projectID, userID)
	if err != nil {
		return nil, err
	}
	if !vis.Exists {
		return nil, ErrProjectNotFound
	}
	if !vis.Visible {
		return nil, ErrNotProjectMember
	}

	return s.projectRepo.ListMembers(projectID)
}

// AddMember adds a user, resolved by username or email, to a project.
func (s *ProjectService) AddMember(projectID uint64, identifier, roleInput string) (*models.ProjectMembership, error) {
	role, ok := models.ParseProjectRole(roleInput)
	if !ok {
		return nil, ErrInvalidRole
	}

	user, err := s.userRepo.FindByIdentifier(strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.projectRepo.FindMember(projectID, user.ID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.ProjectMembership{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	member.User = *user
	return member, nil
}

// ChangeMemberRole changes a member's role, guarding the last-LEAD
// invariant. The returned bool is false when the member already held the
// requested role and nothing was written.
func (s *ProjectService) ChangeMemberRole(projectID, actingUserID, targetUserID uint64, roleInput string) (bool, error) {
	role, ok := models.ParseProjectRole(roleInput)
	if !ok {
		return false, ErrInvalidRole
	}

	changed, err := s.projectRepo.ChangeMemberRole(projectID, targetUserID, role)
	if err != nil {
		return false, s.translateMemberErr(err, actingUserID, targetUserID)
	}
	return changed, nil
}

// RemoveMember removes a member, guarding the last-LEAD invariant and
// unassigning the member's issues.
func (s *ProjectService) RemoveMember(projectID, actingUserID, targetUserID uint64) error {
	if err := s.projectRepo.RemoveMember(projectID, targetUserID); err != nil {
		return s.translateMemberErr(err, actingUserID, targetUserID)
	}
	return nil
}

// ListLabels returns a project's labels ordered by name; visibility is the
// caller's responsibility.
func (s *ProjectService) ListLabels(projectID uint64) ([]models.Label, error) {
	return s.labelRepo.ListByProject(projectID)
}

// CreateLabel adds a label to a project. Names are unique per project.
func (s *ProjectService) CreateLabel(projectID uint64, name string) (*models.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrLabelNameRequired
	}

	label := &models.Label{
		ProjectID: projectID,
		Name:      name,
	}
	if err := s.labelRepo.Create(label); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLabelNameTaken
		}
		return nil, fmt.Errorf("failed to create label: %w", err)
	}
	return label, nil
}

// DeleteLabel removes a project label and all of its issue links.
func (s *ProjectService) DeleteLabel(projectID, labelID uint64) error {
	label, err := s.labelRepo.FindByID(labelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLabelNotFound
		}
		return fmt.Errorf("failed to find label: %w", err)
	}
	if label.ProjectID != projectID {
		return ErrLabelNotFound
	}

	found, err := s.labelRepo.Delete(labelID)
	if err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}
	if !found {
		return ErrLabelNotFound
	}
	return nil
}

func (s *ProjectService) translateMemberErr(err error, actingUserID, targetUserID uint64) error {
	switch {
	case errors.Is(err, repository.ErrMemberNotFound):
		return ErrMemberNotFound
	case errors.Is(err, repository.ErrLastLead):
		if actingUserID == targetUserID {
			return ErrLastLeadSelf
		}
		return ErrLastLead
	default:
		return fmt.Errorf("membership operation failed: %w", err)
	}
}
