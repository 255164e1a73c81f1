package repository

import (
	"errors"

	"github.com/itmsdev/itms-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrMemberNotFound is returned when the target user has no membership
	// row in the project.
	ErrMemberNotFound = errors.New("member not found")
	// ErrLastLead is returned when a role change or removal would leave a
	// project with memberships but no LEAD.
	ErrLastLead = errors.New("project must retain at least one LEAD")
	// ErrLabelNotInProject is returned when an issue references labels that
	// do not belong to its project.
	ErrLabelNotInProject = errors.New("label does not belong to project")
	// ErrLabelAttached is returned when attaching a label that is already on
	// the issue.
	ErrLabelAttached = errors.New("label already attached to issue")
	// ErrLabelNotAttached is returned when detaching a label that is not on
	// the issue.
	ErrLabelNotAttached = errors.New("label not attached to issue")
)

// forUpdate adds a row lock to the query. SQLite has no row locks and a
// single writer, so the clause is skipped there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByIdentifier finds a user by email or username
	FindByIdentifier(identifier string) (*models.User, error)

	// Update persists changes to a user
	Update(user *models.User) error
}

// ProjectRepository defines the interface for project and membership data access
type ProjectRepository interface {
	// CreateWithLead creates a project and its creator's LEAD membership
	// within a single transaction.
	CreateWithLead(project *models.Project, member *models.ProjectMembership) error

	// FindByID finds a project by ID
	FindByID(id uint64) (*models.Project, error)

	// ListVisible returns all projects visible to the user (public or
	// member), ordered by project key, plus the user's role per project.
	ListVisible(userID uint64) ([]models.Project, map[uint64]models.ProjectRole, error)

	// Update persists changes to a project
	Update(project *models.Project) error

	// Delete removes a project and everything it owns. The returned bool
	// reports whether the project row existed.
	Delete(id uint64) (bool, error)

	// FindMember finds a specific project membership
	FindMember(projectID, userID uint64) (*models.ProjectMembership, error)

	// ListMembers lists project members ordered LEAD, DEVELOPER, VIEWER,
	// then by username.
	ListMembers(projectID uint64) ([]models.ProjectMembership, error)

	// AddMember adds a membership row
	AddMember(member *models.ProjectMembership) error

	// ChangeMemberRole updates a member's role, enforcing the last-LEAD
	// invariant. Returns false without error when the role already matches.
	ChangeMemberRole(projectID, userID uint64, role models.ProjectRole) (bool, error)

	// RemoveMember deletes a membership, enforcing the last-LEAD invariant
	// and clearing the member's issue assignments in the same transaction.
	RemoveMember(projectID, userID uint64) error
}

// IssueFilter holds filtering options for listing issues
type IssueFilter struct {
	ProjectID  uint64
	Status     *models.IssueStatus
	AssigneeID *uint64
	Page       int
	PageSize   int
}

// IssueRepository defines the interface for issue data access
type IssueRepository interface {
	// CreateWithLabels creates an issue, allocating its per-project issue
	// number and attaching labels in one transaction.
	CreateWithLabels(issue *models.Issue, labelIDs []uint64) error

	// FindByID finds an issue by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Issue, error)

	// List retrieves a project's issues ordered by issue number
	List(filter IssueFilter) ([]models.Issue, int64, error)

	// Save persists changes to an issue
	Save(issue *models.Issue) error
}

// LabelRepository defines the interface for label data access
type LabelRepository interface {
	// Create creates a label
	Create(label *models.Label) error

	// FindByID finds a label by ID
	FindByID(id uint64) (*models.Label, error)

	// ListByProject lists a project's labels ordered by name
	ListByProject(projectID uint64) ([]models.Label, error)

	// Delete removes a label and its issue links. The returned bool reports
	// whether the label row existed.
	Delete(id uint64) (bool, error)

	// Attach links a label to an issue
	Attach(issueID, labelID uint64) error

	// Detach unlinks a label from an issue
	Detach(issueID, labelID uint64) error
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create creates a comment
	Create(comment *models.Comment) error

	// FindByID finds a comment by ID
	FindByID(id uint64) (*models.Comment, error)

	// ListByIssue lists an issue's comments ordered by creation time
	ListByIssue(issueID uint64) ([]models.Comment, error)

	// Update persists changes to a comment
	Update(comment *models.Comment) error

	// Delete removes a comment
	Delete(id uint64) error
}
