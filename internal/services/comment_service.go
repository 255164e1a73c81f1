package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itmsdev/itms-api/internal/models"
	"github.com/itmsdev/itms-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound        = errors.New("comment not found")
	ErrEmptyComment           = errors.New("comment content is required")
	ErrNotCommentAuthor       = errors.New("only the author can edit this comment")
	ErrCommentDeleteForbidden = errors.New("only the author or a project LEAD can delete this comment")
)

// CommentService provides business logic for issue comments. Visibility of
// the parent issue gates every operation.
type CommentService struct {
	commentRepo  repository.CommentRepository
	issueService *IssueService
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, issueService *IssueService) *CommentService {
	return &CommentService{
		commentRepo:  commentRepo,
		issueService: issueService,
	}
}

// ListComments returns a visible issue's comments, oldest first.
func (s *CommentService) ListComments(issueID, userID uint64) ([]models.Comment, error) {
	if _, _, err := s.issueService.VisibleIssue(issueID, userID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByIssue(issueID)
}

// PostComment adds a comment to a visible issue. Any user who can see the
// issue may comment.
func (s *CommentService) PostComment(issueID, userID uint64, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}

	if _, _, err := s.issueService.VisibleIssue(issueID, userID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		IssueID:  issueID,
		AuthorID: userID,
		Content:  content,
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// EditComment updates a comment's content. Only the original author may
// edit; there is no LEAD override.
func (s *CommentService) EditComment(commentID, userID uint64, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}

	comment, _, err := s.visibleComment(commentID, userID)
	if err != nil {
		return nil, err
	}

	if comment.AuthorID != userID {
		return nil, ErrNotCommentAuthor
	}

	comment.Content = content
	if err := s.commentRepo.Update(comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return comment, nil
}

// DeleteComment removes a comment. The author or a project LEAD may delete.
func (s *CommentService) DeleteComment(commentID, userID uint64) error {
	comment, role, err := s.visibleComment(commentID, userID)
	if err != nil {
		return err
	}

	if comment.AuthorID != userID && role != models.RoleLead {
		return ErrCommentDeleteForbidden
	}

	if err := s.commentRepo.Delete(comment.ID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// visibleComment loads a comment whose parent issue the user may read. An
// invisible parent issue masks the comment as not found.
func (s *CommentService) visibleComment(commentID, userID uint64) (*models.Comment, models.ProjectRole, error) {
	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrCommentNotFound
		}
		return nil, "", fmt.Errorf("failed to find comment: %w", err)
	}

	_, role, err := s.issueService.VisibleIssue(comment.IssueID, userID)
	if err != nil {
		if errors.Is(err, ErrIssueNotFound) || errors.Is(err, ErrIssueForbidden) {
			return nil, "", ErrCommentNotFound
		}
		return nil, "", err
	}

	return comment, role, nil
}
