package models

import (
	"time"
)

type Comment struct {
	ID        uint64    `gorm:"primarykey" json:"comment_id"`
	IssueID   uint64    `gorm:"not null;index" json:"issue_id"`
	AuthorID  uint64    `gorm:"not null" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Issue  Issue `gorm:"foreignKey:IssueID" json:"-"`
	Author User  `gorm:"foreignKey:AuthorID" json:"-"`
}
