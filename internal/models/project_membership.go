package models

import (
	"strings"
	"time"
)

type ProjectRole string

const (
	RoleLead      ProjectRole = "LEAD"
	RoleDeveloper ProjectRole = "DEVELOPER"
	RoleViewer    ProjectRole = "VIEWER"
)

// ProjectRoles lists every valid role, in permission order.
var ProjectRoles = []ProjectRole{RoleLead, RoleDeveloper, RoleViewer}

// ParseProjectRole normalizes case-insensitive input to a ProjectRole.
func ParseProjectRole(s string) (ProjectRole, bool) {
	role := ProjectRole(strings.ToUpper(strings.TrimSpace(s)))
	for _, r := range ProjectRoles {
		if role == r {
			return r, true
		}
	}
	return "", false
}

type ProjectMembership struct {
	ProjectID uint64      `gorm:"primarykey" json:"project_id"`
	UserID    uint64      `gorm:"primarykey" json:"user_id"`
	Role      ProjectRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
	User    User    `gorm:"foreignKey:UserID" json:"-"`
}
