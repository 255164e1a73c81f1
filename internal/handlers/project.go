package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itmsdev/itms-api/internal/dto"
	apierrors "github.com/itmsdev/itms-api/internal/errors"
	"github.com/itmsdev/itms-api/internal/middleware"
	"github.com/itmsdev/itms-api/internal/models"
	"github.com/itmsdev/itms-api/internal/services"
	"github.com/itmsdev/itms-api/internal/utils"
)

// ProjectHandler coordinates project CRUD handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// ListProjects returns all projects visible to the current user, each
// annotated with the caller's role where one exists.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	projects, roles, err := h.projectService.ListProjects(userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch projects")
		return
	}

	out := make([]dto.ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = dto.ToProjectDTO(p, roles[p.ID])
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": out,
	})
}

// CreateProject creates a project and makes the caller its LEAD.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateProjectRequest struct {
		ProjectKey  string `json:"project_key"`
		Name        string `json:"name"`
		Description string `json:"description"`
		IsPublic    any    `json:"is_public"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	isPublic, ok := parseIsPublic(req.IsPublic, true)
	if !ok {
		apierrors.BadRequest(c, "Invalid is_public value")
		return
	}

	project, err := h.projectService.CreateProject(services.CreateProjectInput{
		Key:         req.ProjectKey,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    isPublic,
		CreatorID:   userID,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Project created",
		"project": dto.ToProjectDTO(*project, models.RoleLead),
	})
}

// GetProject returns a single project when the caller may see it. A private
// project the caller is not a member of is masked as not found.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, ok := middleware.ProjectIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	project, role, err := h.projectService.GetProject(projectID, userID)
	if err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			apierrors.NotFound(c, "Project not found")
			return
		}
		apierrors.InternalError(c, "Failed to fetch project")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project": dto.ToProjectDTO(*project, role),
	})
}

// EditProject applies a partial update to a project. LEAD-gated by
// RequireProjectRole.
func (h *ProjectHandler) EditProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	type EditProjectRequest struct {
		ProjectKey  *string `json:"project_key"`
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	var req EditProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	err := h.projectService.EditProject(&project, services.EditProjectInput{
		Key:         req.ProjectKey,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project updated",
		"project": dto.ToProjectDTO(project, roleFromContext(c)),
	})
}

// UpdateVisibility flips the project's public flag. LEAD-gated.
func (h *ProjectHandler) UpdateVisibility(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	value, present := raw["is_public"]
	if !present {
		apierrors.BadRequest(c, "is_public is required")
		return
	}

	isPublic, ok := parseIsPublic(value, false)
	if !ok {
		apierrors.BadRequest(c, "Invalid is_public value")
		return
	}

	if err := h.projectService.UpdateVisibility(&project, isPublic); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project visibility updated",
		"project": dto.ToProjectDTO(project, roleFromContext(c)),
	})
}

// DeleteProject removes a project and everything it owns. LEAD-gated.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, ok := middleware.ProjectIDParam(c)
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(projectID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project deleted",
	})
}

// parseIsPublic applies the accepted is_public representations, falling
// back to def when the field was absent.
func parseIsPublic(value any, def bool) (bool, bool) {
	if value == nil {
		return def, true
	}
	return utils.ParseBoolFlexible(value)
}

func roleFromContext(c *gin.Context) (role models.ProjectRole) {
	if membership, ok := middleware.GetMembership(c); ok {
		role = membership.Role
	}
	return role
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrKeyAndNameRequired):
		apierrors.BadRequest(c, "Project key and name are required")
	case errors.Is(err, services.ErrProjectKeyTaken):
		apierrors.Conflict(c, "Project key already exists")
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, "Project not found")
	case errors.Is(err, services.ErrNoUpdateFields):
		apierrors.BadRequest(c, "No fields to update")
	default:
		apierrors.InternalError(c, "")
	}
}
