package models

import (
	"time"
)

type User struct {
	ID           uint64    `gorm:"primarykey" json:"user_id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	FirstName    string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(100);not null" json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`

	// Relations
	Memberships    []ProjectMembership `gorm:"foreignKey:UserID" json:"-"`
	ReportedIssues []Issue             `gorm:"foreignKey:ReporterID" json:"-"`
	Comments       []Comment           `gorm:"foreignKey:AuthorID" json:"-"`
}
