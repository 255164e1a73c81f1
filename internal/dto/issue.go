package dto

import (
	"time"

	"github.com/itmsdev/itms-api/internal/models"
)

// LabelDTO represents a label in API responses
type LabelDTO struct {
	ID        uint64 `json:"label_id"`
	ProjectID uint64 `json:"project_id"`
	Name      string `json:"name"`
}

// IssueDTO represents an issue in API responses
type IssueDTO struct {
	ID          uint64               `json:"issue_id"`
	ProjectID   uint64               `json:"project_id"`
	IssueNumber int64                `json:"issue_number"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Type        models.IssueType     `json:"issue_type"`
	Status      models.IssueStatus   `json:"status"`
	Priority    models.IssuePriority `json:"priority"`
	ReporterID  uint64               `json:"reporter_id"`
	AssigneeID  *uint64              `json:"assignee_id"`
	DueDate     *time.Time           `json:"due_date"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Reporter    *UserRefDTO          `json:"reporter,omitempty"`
	Assignee    *UserRefDTO          `json:"assignee,omitempty"`
	Labels      []LabelDTO           `json:"labels"`
}

// HistoryDTO represents an issue history entry in API responses
type HistoryDTO struct {
	ID        uint64    `json:"history_id"`
	IssueID   uint64    `json:"issue_id"`
	UserID    uint64    `json:"user_id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	ChangedAt time.Time `json:"changed_at"`
}

// ToLabelDTO converts a Label model to LabelDTO
func ToLabelDTO(label models.Label) LabelDTO {
	return LabelDTO{
		ID:        label.ID,
		ProjectID: label.ProjectID,
		Name:      label.Name,
	}
}

// ToLabelDTOs converts a label slice, preserving order
func ToLabelDTOs(labels []models.Label) []LabelDTO {
	out := make([]LabelDTO, len(labels))
	for i, l := range labels {
		out[i] = ToLabelDTO(l)
	}
	return out
}

// ToIssueDTO converts an Issue model to IssueDTO, including whichever
// relations were preloaded.
func ToIssueDTO(issue models.Issue) IssueDTO {
	d := IssueDTO{
		ID:          issue.ID,
		ProjectID:   issue.ProjectID,
		IssueNumber: issue.IssueNumber,
		Title:       issue.Title,
		Description: issue.Description,
		Type:        issue.Type,
		Status:      issue.Status,
		Priority:    issue.Priority,
		ReporterID:  issue.ReporterID,
		AssigneeID:  issue.AssigneeID,
		DueDate:     issue.DueDate,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
		Labels:      ToLabelDTOs(issue.Labels),
	}

	if issue.Reporter.ID != 0 {
		reporter := ToUserRefDTO(issue.Reporter)
		d.Reporter = &reporter
	}
	if issue.Assignee != nil && issue.Assignee.ID != 0 {
		assignee := ToUserRefDTO(*issue.Assignee)
		d.Assignee = &assignee
	}

	return d
}

// ToIssueDTOs converts an issue slice, preserving order
func ToIssueDTOs(issues []models.Issue) []IssueDTO {
	out := make([]IssueDTO, len(issues))
	for i, issue := range issues {
		out[i] = ToIssueDTO(issue)
	}
	return out
}

// ToHistoryDTOs converts a history slice, preserving order
func ToHistoryDTOs(entries []models.IssueHistory) []HistoryDTO {
	out := make([]HistoryDTO, len(entries))
	for i, e := range entries {
		out[i] = HistoryDTO{
			ID:        e.ID,
			IssueID:   e.IssueID,
			UserID:    e.UserID,
			Field:     e.Field,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			ChangedAt: e.ChangedAt,
		}
	}
	return out
}
