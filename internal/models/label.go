package models

type Label struct {
	ID        uint64 `gorm:"primarykey" json:"label_id"`
	ProjectID uint64 `gorm:"not null;uniqueIndex:uq_project_label_name,priority:1" json:"project_id"`
	Name      string `gorm:"type:varchar(100);not null;uniqueIndex:uq_project_label_name,priority:2" json:"name"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
}

// IssueLabel is the issue/label join row. It doubles as the table backing
// the Issue.Labels many2many relation, so the column names must stay in
// sync with gorm's defaults.
type IssueLabel struct {
	IssueID uint64 `gorm:"primarykey" json:"issue_id"`
	LabelID uint64 `gorm:"primarykey" json:"label_id"`
}
