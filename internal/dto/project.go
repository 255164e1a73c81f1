package dto

import (
	"time"

	"github.com/itmsdev/itms-api/internal/models"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64             `json:"project_id"`
	ProjectKey  string             `json:"project_key"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	IsPublic    bool               `json:"is_public"`
	CreatedBy   uint64             `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	UserRole    models.ProjectRole `json:"user_role,omitempty"`
}

// MemberDTO represents a project member in API responses
type MemberDTO struct {
	UserID    uint64             `json:"user_id"`
	Username  string             `json:"username"`
	FirstName string             `json:"first_name"`
	LastName  string             `json:"last_name"`
	Role      models.ProjectRole `json:"role"`
	JoinedAt  time.Time          `json:"joined_at"`
}

// ToProjectDTO converts a Project model to ProjectDTO. role is "" for
// non-members.
func ToProjectDTO(project models.Project, role models.ProjectRole) ProjectDTO {
	return ProjectDTO{
		ID:          project.ID,
		ProjectKey:  project.ProjectKey,
		Name:        project.Name,
		Description: project.Description,
		IsPublic:    project.IsPublic,
		CreatedBy:   project.CreatedBy,
		CreatedAt:   project.CreatedAt,
		UserRole:    role,
	}
}

// ToMemberDTO converts a ProjectMembership (with User preloaded) to MemberDTO
func ToMemberDTO(member models.ProjectMembership) MemberDTO {
	return MemberDTO{
		UserID:    member.UserID,
		Username:  member.User.Username,
		FirstName: member.User.FirstName,
		LastName:  member.User.LastName,
		Role:      member.Role,
		JoinedAt:  member.JoinedAt,
	}
}

// ToMemberDTOs converts a membership slice, preserving order
func ToMemberDTOs(members []models.ProjectMembership) []MemberDTO {
	out := make([]MemberDTO, len(members))
	for i, m := range members {
		out[i] = ToMemberDTO(m)
	}
	return out
}
