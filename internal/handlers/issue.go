package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/itmsdev/itms-api/internal/dto"
	apierrors "github.com/itmsdev/itms-api/internal/errors"
	"github.com/itmsdev/itms-api/internal/middleware"
	"github.com/itmsdev/itms-api/internal/models"
	"github.com/itmsdev/itms-api/internal/repository"
	"github.com/itmsdev/itms-api/internal/services"
	"github.com/itmsdev/itms-api/internal/utils"
)

// IssueHandler coordinates issue endpoints.
type IssueHandler struct {
	issueService *services.IssueService
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(issueService *services.IssueService) *IssueHandler {
	return &IssueHandler{
		issueService: issueService,
	}
}

// ListIssues returns a project's issues ordered by issue number, with
// optional status and assignee filters. Runs behind RequireProjectVisible.
func (h *IssueHandler) ListIssues(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not loaded")
		return
	}

	params := utils.GetPaginationParams(c)
	filter := repository.IssueFilter{
		ProjectID: project.ID,
		Page:      params.Page,
		PageSize:  params.Limit,
	}

	if raw := c.Query("status"); raw != "" {
		status, valid := models.ParseIssueStatus(raw)
		if !valid {
			apierrors.BadRequestWithDetails(c, "Invalid status filter", gin.H{"allowed": models.IssueStatuses})
			return
		}
		filter.Status = &status
	}

	if raw := c.Query("assignee_id"); raw != "" {
		assigneeID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assignee_id filter")
			return
		}
		filter.AssigneeID = &assigneeID
	}

	issues, total, err := h.issueService.ListIssues(filter)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch issues")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issues": dto.ToIssueDTOs(issues),
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// CreateIssue files a new issue in the project. Only members may report
// issues, whatever their role; RequireProjectRole enforces that.
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not loaded")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateIssueRequest struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Type        string   `json:"type"`
		Priority    string   `json:"priority"`
		AssigneeID  *uint64  `json:"assignee_id"`
		DueDate     *string  `json:"due_date"`
		LabelIDs    []uint64 `json:"label_ids"`
	}

	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		parsed, err := parseDueDate(*req.DueDate)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_date: expected RFC 3339 or YYYY-MM-DD")
			return
		}
		dueDate = parsed
	}

	issue, err := h.issueService.CreateIssue(services.CreateIssueInput{
		ProjectID:   project.ID,
		ReporterID:  userID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     dueDate,
		LabelIDs:    req.LabelIDs,
	})
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Issue created",
		"issue":   dto.ToIssueDTO(*issue),
	})
}

// GetIssue returns a single issue with labels and user relations. Issues in
// private projects the user cannot see are reported as not found.
func (h *IssueHandler) GetIssue(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	issue, _, err := h.issueService.VisibleIssue(issueID, userID)
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issue": dto.ToIssueDTO(*issue),
	})
}

// EditIssue applies a partial update to an issue. The body is parsed as a
// raw map so an explicit "due_date": null clears the date while an absent
// key leaves it alone.
func (h *IssueHandler) EditIssue(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.EditIssueInput

	for _, field := range []struct {
		key  string
		dest **string
	}{
		{"title", &input.Title},
		{"description", &input.Description},
		{"type", &input.Type},
		{"status", &input.Status},
		{"priority", &input.Priority},
	} {
		raw, present := body[field.key]
		if !present {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			apierrors.BadRequest(c, "Invalid value for "+field.key)
			return
		}
		*field.dest = &value
	}

	if raw, present := body["due_date"]; present {
		input.DueDateSet = true
		if string(raw) != "null" {
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				apierrors.BadRequest(c, "Invalid value for due_date")
				return
			}
			parsed, err := parseDueDate(value)
			if err != nil {
				apierrors.BadRequest(c, "Invalid due_date: expected RFC 3339 or YYYY-MM-DD")
				return
			}
			input.DueDate = parsed
		}
	}

	issue, err := h.issueService.EditIssue(issueID, userID, input)
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Issue updated",
		"issue":   dto.ToIssueDTO(*issue),
	})
}

// UpdateAssignee reassigns an issue. Only a project LEAD may do this; a
// null assignee_id unassigns.
func (h *IssueHandler) UpdateAssignee(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateAssigneeRequest struct {
		AssigneeID *uint64 `json:"assignee_id"`
	}

	var req UpdateAssigneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	issue, err := h.issueService.UpdateAssignee(issueID, userID, req.AssigneeID)
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Assignee updated",
		"issue":   dto.ToIssueDTO(*issue),
	})
}

// History returns an issue's change log in chronological order.
func (h *IssueHandler) History(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	entries, err := h.issueService.History(issueID, userID)
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": dto.ToHistoryDTOs(entries),
	})
}

// AddLabel attaches a project label to an issue.
func (h *IssueHandler) AddLabel(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type AddLabelRequest struct {
		LabelID uint64 `json:"label_id"`
	}

	var req AddLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LabelID == 0 {
		apierrors.BadRequest(c, "label_id is required")
		return
	}

	issue, err := h.issueService.AddLabel(issueID, userID, req.LabelID)
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Label added",
		"issue":   dto.ToIssueDTO(*issue),
	})
}

// RemoveLabel detaches a label from an issue.
func (h *IssueHandler) RemoveLabel(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	labelID, err := strconv.ParseUint(c.Param("label_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid label ID")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	issue, svcErr := h.issueService.RemoveLabel(issueID, userID, labelID)
	if svcErr != nil {
		respondIssueError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Label removed",
		"issue":   dto.ToIssueDTO(*issue),
	})
}

func issueIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("issue_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid issue ID")
		return 0, false
	}
	return id, true
}

// parseDueDate accepts RFC 3339 timestamps or bare dates. Bare dates are
// taken as midnight UTC.
func parseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func respondIssueError(c *gin.Context, err error) {
	var labelsErr *services.InvalidLabelsError
	switch {
	case errors.As(err, &labelsErr):
		apierrors.BadRequestWithDetails(c, "Labels must belong to the issue's project", gin.H{"label_ids": labelsErr.IDs})
	case errors.Is(err, services.ErrIssueNotFound), errors.Is(err, services.ErrIssueForbidden):
		apierrors.NotFound(c, "Issue not found")
	case errors.Is(err, services.ErrIssueEditForbidden):
		apierrors.Forbidden(c, "Only a project LEAD or the assignee can modify this issue")
	case errors.Is(err, services.ErrLeadRequired):
		apierrors.Forbidden(c, "Only a project LEAD can perform this action")
	case errors.Is(err, services.ErrTitleRequired):
		apierrors.BadRequest(c, "title is required")
	case errors.Is(err, services.ErrNoUpdateFields):
		apierrors.BadRequest(c, "No fields to update")
	case errors.Is(err, services.ErrInvalidIssueType):
		apierrors.BadRequestWithDetails(c, "Invalid issue type", gin.H{"allowed": models.IssueTypes})
	case errors.Is(err, services.ErrInvalidIssueStatus):
		apierrors.BadRequestWithDetails(c, "Invalid issue status", gin.H{"allowed": models.IssueStatuses})
	case errors.Is(err, services.ErrInvalidIssuePriority):
		apierrors.BadRequestWithDetails(c, "Invalid issue priority", gin.H{"allowed": models.IssuePriorities})
	case errors.Is(err, services.ErrInvalidAssignee):
		apierrors.BadRequest(c, "Assignee must be a LEAD or DEVELOPER of this project")
	case errors.Is(err, services.ErrLabelNotFound):
		apierrors.NotFound(c, "Label not found in this project")
	case errors.Is(err, services.ErrLabelAlreadyAttached):
		apierrors.Conflict(c, "Label is already attached to this issue")
	case errors.Is(err, services.ErrLabelNotAttached):
		apierrors.NotFound(c, "Label is not attached to this issue")
	default:
		apierrors.InternalError(c, "")
	}
}
