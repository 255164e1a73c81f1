package dto

import (
	"time"

	"github.com/itmsdev/itms-api/internal/models"
)

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID        uint64      `json:"comment_id"`
	IssueID   uint64      `json:"issue_id"`
	AuthorID  uint64      `json:"author_id"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Author    *UserRefDTO `json:"author,omitempty"`
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	d := CommentDTO{
		ID:        comment.ID,
		IssueID:   comment.IssueID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
	if comment.Author.ID != 0 {
		author := ToUserRefDTO(comment.Author)
		d.Author = &author
	}
	return d
}

// ToCommentDTOs converts a comment slice, preserving order
func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	out := make([]CommentDTO, len(comments))
	for i, c := range comments {
		out[i] = ToCommentDTO(c)
	}
	return out
}
