package models

import (
	"strings"
	"time"
)

type IssueType string

const (
	IssueTypeBug     IssueType = "BUG"
	IssueTypeFeature IssueType = "FEATURE"
	IssueTypeTask    IssueType = "TASK"
	IssueTypeOther   IssueType = "OTHER"
)

var IssueTypes = []IssueType{IssueTypeBug, IssueTypeFeature, IssueTypeTask, IssueTypeOther}

type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusResolved   IssueStatus = "RESOLVED"
	IssueStatusClosed     IssueStatus = "CLOSED"
)

var IssueStatuses = []IssueStatus{IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved, IssueStatusClosed}

type IssuePriority string

const (
	IssuePriorityLow      IssuePriority = "LOW"
	IssuePriorityMedium   IssuePriority = "MEDIUM"
	IssuePriorityHigh     IssuePriority = "HIGH"
	IssuePriorityCritical IssuePriority = "CRITICAL"
)

var IssuePriorities = []IssuePriority{IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh, IssuePriorityCritical}

// ParseIssueType normalizes case-insensitive input to an IssueType.
func ParseIssueType(s string) (IssueType, bool) {
	t := IssueType(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range IssueTypes {
		if t == v {
			return v, true
		}
	}
	return "", false
}

// ParseIssueStatus normalizes case-insensitive input to an IssueStatus.
func ParseIssueStatus(s string) (IssueStatus, bool) {
	t := IssueStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range IssueStatuses {
		if t == v {
			return v, true
		}
	}
	return "", false
}

// ParseIssuePriority normalizes case-insensitive input to an IssuePriority.
func ParseIssuePriority(s string) (IssuePriority, bool) {
	t := IssuePriority(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range IssuePriorities {
		if t == v {
			return v, true
		}
	}
	return "", false
}

type Issue struct {
	ID          uint64        `gorm:"primarykey" json:"issue_id"`
	ProjectID   uint64        `gorm:"not null;uniqueIndex:uq_project_issue_number,priority:1" json:"project_id"`
	IssueNumber int64         `gorm:"not null;uniqueIndex:uq_project_issue_number,priority:2" json:"issue_number"`
	Title       string        `gorm:"type:varchar(255);not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Type        IssueType     `gorm:"type:varchar(20);not null;default:'TASK'" json:"issue_type"`
	Status      IssueStatus   `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	Priority    IssuePriority `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	ReporterID  uint64        `gorm:"not null;index" json:"reporter_id"`
	AssigneeID  *uint64       `gorm:"index" json:"assignee_id"`
	DueDate     *time.Time    `json:"due_date"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	Project  Project   `gorm:"foreignKey:ProjectID" json:"-"`
	Reporter User      `gorm:"foreignKey:ReporterID" json:"-"`
	Assignee *User     `gorm:"foreignKey:AssigneeID" json:"-"`
	Labels   []Label   `gorm:"many2many:issue_labels" json:"-"`
	Comments []Comment `gorm:"foreignKey:IssueID" json:"-"`
}
