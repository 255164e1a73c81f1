package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/itmsdev/itms-api/internal/dto"
	apierrors "github.com/itmsdev/itms-api/internal/errors"
	"github.com/itmsdev/itms-api/internal/middleware"
	"github.com/itmsdev/itms-api/internal/models"
	"github.com/itmsdev/itms-api/internal/services"
)

// MemberHandler coordinates project membership handlers.
type MemberHandler struct {
	projectService *services.ProjectService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(projectService *services.ProjectService) *MemberHandler {
	return &MemberHandler{
		projectService: projectService,
	}
}

// ListMembers returns a project's members ordered LEAD, DEVELOPER, VIEWER,
// then username. This endpoint separates "project not found" from "not
// authorized"; project reads elsewhere mask both as 404.
func (h *MemberHandler) ListMembers(c *gin.Context) {
	projectID, ok := middleware.ProjectIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	members, err := h.projectService.ListMembers(projectID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProjectNotFound):
			apierrors.NotFound(c, "Project not found")
		case errors.Is(err, services.ErrNotProjectMember):
			apierrors.Forbidden(c, "Not authorized to view members of this project")
		default:
			apierrors.InternalError(c, "Failed to fetch members")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"members": dto.ToMemberDTOs(members),
	})
}

// AddMember adds a user to the project, resolved by username or email.
// LEAD-gated by RequireProjectRole.
func (h *MemberHandler) AddMember(c *gin.Context) {
	projectID, ok := middleware.ProjectIDParam(c)
	if !ok {
		return
	}

	type AddMemberRequest struct {
		Identifier string `json:"identifier"`
		Role       string `json:"role"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if req.Identifier == "" || req.Role == "" {
		apierrors.BadRequest(c, "identifier and role are required")
		return
	}

	member, err := h.projectService.AddMember(projectID, req.Identifier, req.Role)
	if err != nil {
		respondMemberError(c, err, false)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Member added",
		"member":  dto.ToMemberDTO(*member),
	})
}

// ChangeMemberRole updates a member's role. Demoting the last LEAD is
// rejected. LEAD-gated.
func (h *MemberHandler) ChangeMemberRole(c *gin.Context) {
	projectID, ok := middleware.ProjectIDParam(c)
	if !ok {
		return
	}
	targetUserID, ok := userIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type ChangeRoleRequest struct {
		Role string `json:"role"`
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if req.Role == "" {
		apierrors.BadRequest(c, "role is required")
		return
	}

	changed, err := h.projectService.ChangeMemberRole(projectID, userID, targetUserID, req.Role)
	if err != nil {
		respondMemberError(c, err, false)
		return
	}

	if !changed {
		c.JSON(http.StatusOK, gin.H{
			"message": "Member already has this role",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member role updated",
	})
}

// RemoveMember removes a member from the project, clearing their issue
// assignments. Removing the last LEAD is rejected. LEAD-gated.
func (h *MemberHandler) RemoveMember(c *gin.Context) {
	projectID, ok := middleware.ProjectIDParam(c)
	if !ok {
		return
	}
	targetUserID, ok := userIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.projectService.RemoveMember(projectID, userID, targetUserID); err != nil {
		respondMemberError(c, err, true)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed",
	})
}

func userIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return 0, false
	}
	return id, true
}

func respondMemberError(c *gin.Context, err error, removing bool) {
	switch {
	case errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequestWithDetails(c, "Invalid role", gin.H{"allowed": models.ProjectRoles})
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrAlreadyMember):
		apierrors.Conflict(c, "User is already a member of this project")
	case errors.Is(err, services.ErrMemberNotFound):
		apierrors.NotFound(c, "Member not found in this project")
	case errors.Is(err, services.ErrLastLeadSelf):
		if removing {
			apierrors.Conflict(c, "Cannot remove yourself: you are the only LEAD of this project")
		} else {
			apierrors.Conflict(c, "Cannot demote yourself: you are the only LEAD of this project")
		}
	case errors.Is(err, services.ErrLastLead):
		if removing {
			apierrors.Conflict(c, "Cannot remove the only LEAD of this project")
		} else {
			apierrors.Conflict(c, "Cannot demote the only LEAD of this project")
		}
	default:
		apierrors.InternalError(c, "")
	}
}
