package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/itmsdev/itms-api/internal/dto"
	apierrors "github.com/itmsdev/itms-api/internal/errors"
	"github.com/itmsdev/itms-api/internal/middleware"
	"github.com/itmsdev/itms-api/internal/services"
)

// LabelHandler coordinates project label endpoints.
type LabelHandler struct {
	projectService *services.ProjectService
}

// NewLabelHandler creates a new LabelHandler.
func NewLabelHandler(projectService *services.ProjectService) *LabelHandler {
	return &LabelHandler{
		projectService: projectService,
	}
}

// ListLabels returns a project's labels. Runs behind RequireProjectVisible.
func (h *LabelHandler) ListLabels(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not loaded")
		return
	}

	labels, err := h.projectService.ListLabels(project.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch labels")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"labels": dto.ToLabelDTOs(labels),
	})
}

// CreateLabel creates a label in the project. Gated to LEAD and DEVELOPER.
func (h *LabelHandler) CreateLabel(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not loaded")
		return
	}

	type CreateLabelRequest struct {
		Name string `json:"name"`
	}

	var req CreateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	label, err := h.projectService.CreateLabel(project.ID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLabelNameRequired):
			apierrors.BadRequest(c, "name is required")
		case errors.Is(err, services.ErrLabelNameTaken):
			apierrors.Conflict(c, "A label with this name already exists in this project")
		default:
			apierrors.InternalError(c, "Failed to create label")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Label created",
		"label":   dto.ToLabelDTO(*label),
	})
}

// DeleteLabel removes a label from the project and detaches it from every
// issue. Gated to LEAD and DEVELOPER.
func (h *LabelHandler) DeleteLabel(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not loaded")
		return
	}

	labelID, err := strconv.ParseUint(c.Param("label_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid label ID")
		return
	}

	if err := h.projectService.DeleteLabel(project.ID, labelID); err != nil {
		if errors.Is(err, services.ErrLabelNotFound) {
			apierrors.NotFound(c, "Label not found in this project")
			return
		}
		apierrors.InternalError(c, "Failed to delete label")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Label deleted",
	})
}
