package models

import (
	"time"
)

type Project struct {
	ID          uint64    `gorm:"primarykey" json:"project_id"`
	ProjectKey  string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"project_key"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsPublic    bool      `gorm:"not null" json:"is_public"`
	CreatedBy   uint64    `gorm:"not null;index" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`

	// Relations
	Creator     User                `gorm:"foreignKey:CreatedBy" json:"-"`
	Memberships []ProjectMembership `gorm:"foreignKey:ProjectID" json:"-"`
	Issues      []Issue             `gorm:"foreignKey:ProjectID" json:"-"`
	Labels      []Label             `gorm:"foreignKey:ProjectID" json:"-"`
}
