package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/itmsdev/itms-api/internal/authz"
	"github.com/itmsdev/itms-api/internal/history"
	"github.com/itmsdev/itms-api/internal/models"
	"github.com/itmsdev/itms-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrIssueNotFound        = errors.New("issue not found")
	ErrIssueForbidden       = errors.New("issue not accessible")
	ErrIssueEditForbidden   = errors.New("only a project LEAD or the assignee can modify this issue")
	ErrLeadRequired         = errors.New("only a project LEAD can perform this action")
	ErrTitleRequired        = errors.New("title is required")
	ErrInvalidIssueType     = errors.New("invalid issue type")
	ErrInvalidIssueStatus   = errors.New("invalid issue status")
	ErrInvalidIssuePriority = errors.New("invalid issue priority")
	ErrInvalidAssignee      = errors.New("assignee must be a LEAD or DEVELOPER of this project")
	ErrLabelNotFound        = errors.New("label not found in this project")
	ErrLabelAlreadyAttached = errors.New("label already attached to this issue")
	ErrLabelNotAttached     = errors.New("label not attached to this issue")
)

// InvalidLabelsError reports label IDs that do not belong to the issue's
// project.
type InvalidLabelsError struct {
	IDs []uint64
}

func (e *InvalidLabelsError) Error() string {
	return fmt.Sprintf("invalid label ids: %v", e.IDs)
}

// IssueService provides business logic for the issue lifecycle.
type IssueService struct {
	issueRepo   repository.IssueRepository
	labelRepo   repository.LabelRepository
	projectRepo repository.ProjectRepository
	recorder    history.Recorder
}

// NewIssueService creates a new IssueService.
func NewIssueService(issueRepo repository.IssueRepository, labelRepo repository.LabelRepository, projectRepo repository.ProjectRepository, recorder history.Recorder) *IssueService {
	return &IssueService{
		issueRepo:   issueRepo,
		labelRepo:   labelRepo,
		projectRepo: projectRepo,
		recorder:    recorder,
	}
}

// VisibleIssue loads an issue the user may read, with labels and user
// relations, plus the user's role in the issue's project. A private project
// the user cannot see yields ErrIssueForbidden; an absent issue or project
// yields ErrIssueNotFound. Handlers mask both as 404.
func (s *IssueService) VisibleIssue(issueID, userID uint64) (*models.Issue, models.ProjectRole, error) {
	issue, err := s.issueRepo.FindByID(issueID, "Labels", "Reporter", "Assignee")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrIssueNotFound
		}
		return nil, "", fmt.Errorf("failed to find issue: %w", err)
	}

	project, err := s.projectRepo.FindByID(issue.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrIssueNotFound
		}
		return nil, "", fmt.Errorf("failed to find project: %w", err)
	}

	membership, err := s.projectRepo.FindMember(issue.ProjectID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("failed to find membership: %w", err)
	}

	vis := authz.Visibility(project, membership)
	if !vis.Visible {
		return nil, "", ErrIssueForbidden
	}

	return issue, vis.Role, nil
}

// CreateIssueInput represents parameters to file a new issue. Type and
// Priority are raw request strings; empty means the default.
type CreateIssueInput struct {
	ProjectID   uint64
	ReporterID  uint64
	Title       string
	Description string
	Type        string
	Priority    string
	AssigneeID  *uint64
	DueDate     *time.Time
	LabelIDs    []uint64
}

// CreateIssue files a new issue. The issue number allocation and label
// attachment happen in one transaction; a failed label attach rolls back
// the issue row.
func (s *IssueService) CreateIssue(input CreateIssueInput) (*models.Issue, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	issueType := models.IssueTypeTask
	if input.Type != "" {
		parsed, ok := models.ParseIssueType(input.Type)
		if !ok {
			return nil, ErrInvalidIssueType
		}
		issueType = parsed
	}

	priority := models.IssuePriorityMedium
	if input.Priority != "" {
		parsed, ok := models.ParseIssuePriority(input.Priority)
		if !ok {
			return nil, ErrInvalidIssuePriority
		}
		priority = parsed
	}

	if input.AssigneeID != nil {
		if err := s.checkAssignee(input.ProjectID, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	if len(input.LabelIDs) > 0 {
		if err := s.checkLabels(input.ProjectID, input.LabelIDs); err != nil {
			return nil, err
		}
	}

	issue := &models.Issue{
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: input.Description,
		Type:        issueType,
		Status:      models.IssueStatusOpen,
		Priority:    priority,
		ReporterID:  input.ReporterID,
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
	}

	if err := s.issueRepo.CreateWithLabels(issue, input.LabelIDs); err != nil {
		if errors.Is(err, repository.ErrLabelNotInProject) {
			return nil, &InvalidLabelsError{IDs: input.LabelIDs}
		}
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	s.record(issue.ID, input.ReporterID, "created", "", title)

	created, err := s.issueRepo.FindByID(issue.ID, "Labels", "Reporter", "Assignee")
	if err != nil {
		return nil, fmt.Errorf("failed to reload issue: %w", err)
	}
	return created, nil
}

// EditIssueInput holds the partial update for an issue. Enum fields are raw
// request strings; DueDateSet distinguishes "set to null" from "not sent".
type EditIssueInput struct {
	Title       *string
	Description *string
	Type        *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
	DueDateSet  bool
}

// EditIssue applies a partial update. The caller must be a project LEAD or
// the current assignee.
func (s *IssueService) EditIssue(issueID, userID uint64, input EditIssueInput) (*models.Issue, error) {
	issue, role, err := s.VisibleIssue(issueID, userID)
	if err != nil {
		return nil, err
	}

	if !authz.CanModifyIssue(issue, userID, role) {
		return nil, ErrIssueEditForbidden
	}

	if input.Title == nil && input.Description == nil && input.Type == nil &&
		input.Status == nil && input.Priority == nil && !input.DueDateSet {
		return nil, ErrNoUpdateFields
	}

	type change struct {
		field, old, new string
	}
	var changes []change

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if title != issue.Title {
			changes = append(changes, change{"title", issue.Title, title})
			issue.Title = title
		}
	}
	if input.Description != nil && *input.Description != issue.Description {
		changes = append(changes, change{"description", issue.Description, *input.Description})
		issue.Description = *input.Description
	}
	if input.Type != nil {
		parsed, ok := models.ParseIssueType(*input.Type)
		if !ok {
			return nil, ErrInvalidIssueType
		}
		if parsed != issue.Type {
			changes = append(changes, change{"issue_type", string(issue.Type), string(parsed)})
			issue.Type = parsed
		}
	}
	if input.Status != nil {
		parsed, ok := models.ParseIssueStatus(*input.Status)
		if !ok {
			return nil, ErrInvalidIssueStatus
		}
		if parsed != issue.Status {
			changes = append(changes, change{"status", string(issue.Status), string(parsed)})
			issue.Status = parsed
		}
	}
	if input.Priority != nil {
		parsed, ok := models.ParseIssuePriority(*input.Priority)
		if !ok {
			return nil, ErrInvalidIssuePriority
		}
		if parsed != issue.Priority {
			changes = append(changes, change{"priority", string(issue.Priority), string(parsed)})
			issue.Priority = parsed
		}
	}
	if input.DueDateSet {
		changes = append(changes, change{"due_date", formatDueDate(issue.DueDate), formatDueDate(input.DueDate)})
		issue.DueDate = input.DueDate
	}

	if err := s.issueRepo.Save(issue); err != nil {
		return nil, fmt.Errorf("failed to update issue: %w", err)
	}

	for _, ch := range changes {
		s.record(issue.ID, userID, ch.field, ch.old, ch.new)
	}

	return issue, nil
}

// UpdateAssignee sets or clears the assignee. This is stricter than a
// general edit: only a project LEAD may reassign, even if the caller is the
// current assignee.
func (s *IssueService) UpdateAssignee(issueID, userID uint64, assigneeID *uint64) (*models.Issue, error) {
	issue, role, err := s.VisibleIssue(issueID, userID)
	if err != nil {
		return nil, err
	}

	if role != models.RoleLead {
		return nil, ErrLeadRequired
	}

	if assigneeID != nil {
		if err := s.checkAssignee(issue.ProjectID, *assigneeID); err != nil {
			return nil, err
		}
	}

	old := formatAssignee(issue.AssigneeID)
	issue.AssigneeID = assigneeID
	issue.Assignee = nil
	if err := s.issueRepo.Save(issue); err != nil {
		return nil, fmt.Errorf("failed to update assignee: %w", err)
	}

	s.record(issue.ID, userID, "assignee_id", old, formatAssignee(assigneeID))

	updated, err := s.issueRepo.FindByID(issue.ID, "Labels", "Reporter", "Assignee")
	if err != nil {
		return nil, fmt.Errorf("failed to reload issue: %w", err)
	}
	return updated, nil
}

// ListIssues returns a visible project's issues; visibility is the caller's
// responsibility.
func (s *IssueService) ListIssues(filter repository.IssueFilter) ([]models.Issue, int64, error) {
	return s.issueRepo.List(filter)
}

// History returns an issue's change log, oldest first.
func (s *IssueService) History(issueID, userID uint64) ([]models.IssueHistory, error) {
	if _, _, err := s.VisibleIssue(issueID, userID); err != nil {
		return nil, err
	}
	return s.recorder.ListByIssue(issueID)
}

// AddLabel attaches a project label to an issue.
func (s *IssueService) AddLabel(issueID, userID, labelID uint64) (*models.Issue, error) {
	issue, role, err := s.VisibleIssue(issueID, userID)
	if err != nil {
		return nil, err
	}
	if !authz.CanModifyIssue(issue, userID, role) {
		return nil, ErrIssueEditForbidden
	}

	label, err := s.labelRepo.FindByID(labelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLabelNotFound
		}
		return nil, fmt.Errorf("failed to find label: %w", err)
	}
	if label.ProjectID != issue.ProjectID {
		return nil, ErrLabelNotFound
	}

	if err := s.labelRepo.Attach(issueID, labelID); err != nil {
		if errors.Is(err, repository.ErrLabelAttached) {
			return nil, ErrLabelAlreadyAttached
		}
		return nil, fmt.Errorf("failed to attach label: %w", err)
	}

	s.record(issueID, userID, "label_added", "", label.Name)

	return s.issueRepo.FindByID(issueID, "Labels", "Reporter", "Assignee")
}

// RemoveLabel detaches a label from an issue.
func (s *IssueService) RemoveLabel(issueID, userID, labelID uint64) (*models.Issue, error) {
	issue, role, err := s.VisibleIssue(issueID, userID)
	if err != nil {
		return nil, err
	}
	if !authz.CanModifyIssue(issue, userID, role) {
		return nil, ErrIssueEditForbidden
	}

	label, err := s.labelRepo.FindByID(labelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLabelNotAttached
		}
		return nil, fmt.Errorf("failed to find label: %w", err)
	}

	if err := s.labelRepo.Detach(issueID, labelID); err != nil {
		if errors.Is(err, repository.ErrLabelNotAttached) {
			return nil, ErrLabelNotAttached
		}
		return nil, fmt.Errorf("failed to detach label: %w", err)
	}

	s.record(issueID, userID, "label_removed", label.Name, "")

	return s.issueRepo.FindByID(issueID, "Labels", "Reporter", "Assignee")
}

func (s *IssueService) checkAssignee(projectID, assigneeID uint64) error {
	member, err := s.projectRepo.FindMember(projectID, assigneeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidAssignee
		}
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	if !authz.CanBeAssignee(member.Role) {
		return ErrInvalidAssignee
	}
	return nil
}

func (s *IssueService) checkLabels(projectID uint64, labelIDs []uint64) error {
	labels, err := s.labelRepo.ListByProject(projectID)
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}

	valid := make(map[uint64]bool, len(labels))
	for _, l := range labels {
		valid[l.ID] = true
	}

	var invalid []uint64
	for _, id := range labelIDs {
		if !valid[id] {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return &InvalidLabelsError{IDs: invalid}
	}
	return nil
}

// record appends a history row. History is a side effect of the mutation,
// not part of its transaction; a recorder failure is logged and the
// mutation stands.
func (s *IssueService) record(issueID, userID uint64, field, oldValue, newValue string) {
	if err := s.recorder.Record(issueID, userID, field, oldValue, newValue); err != nil {
		log.Printf("history: failed to record %s for issue %d: %v", field, issueID, err)
	}
}

func formatDueDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatAssignee(id *uint64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(*id, 10)
}
