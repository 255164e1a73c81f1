// Package authz holds the pure authorization predicates. Every function
// here operates on already-fetched rows and performs no I/O; callers are
// responsible for loading the project, membership, and issue state inside
// whatever transaction the decision must hold for.
package authz

import (
	"github.com/itmsdev/itms-api/internal/models"
)

// ProjectVisibility classifies what a user may see of a project.
type ProjectVisibility struct {
	Exists   bool
	IsPublic bool
	// Role is the user's role in the project, or "" for non-members.
	Role models.ProjectRole
	// Visible is true when the project is public or the user is a member.
	Visible bool
}

// Visibility computes project visibility for a user. project may be nil
// (project row absent) and membership may be nil (user is not a member).
func Visibility(project *models.Project, membership *models.ProjectMembership) ProjectVisibility {
	if project == nil {
		return ProjectVisibility{}
	}

	v := ProjectVisibility{
		Exists:   true,
		IsPublic: project.IsPublic,
	}
	if membership != nil {
		v.Role = membership.Role
	}
	v.Visible = v.IsPublic || v.Role != ""
	return v
}

// CanModifyIssue reports whether a user may edit an issue: project LEADs
// always can, otherwise only the current assignee.
func CanModifyIssue(issue *models.Issue, userID uint64, role models.ProjectRole) bool {
	if role == models.RoleLead {
		return true
	}
	return issue.AssigneeID != nil && *issue.AssigneeID == userID
}

// RoleAllowed reports whether role is one of the allowed roles. A ""
// (non-member) role never matches.
func RoleAllowed(role models.ProjectRole, allowed ...models.ProjectRole) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// CanBeAssignee reports whether a member with the given role may be set as
// an issue assignee.
func CanBeAssignee(role models.ProjectRole) bool {
	return role == models.RoleLead || role == models.RoleDeveloper
}

// LeadCount counts LEAD memberships in a fetched membership set.
func LeadCount(members []models.ProjectMembership) int {
	n := 0
	for _, m := range members {
		if m.Role == models.RoleLead {
			n++
		}
	}
	return n
}
