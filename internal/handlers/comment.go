package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/itmsdev/itms-api/internal/dto"
	apierrors "github.com/itmsdev/itms-api/internal/errors"
	"github.com/itmsdev/itms-api/internal/middleware"
	"github.com/itmsdev/itms-api/internal/services"
)

// CommentHandler coordinates issue comment endpoints.
type CommentHandler struct {
	commentService *services.CommentService
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// ListComments returns an issue's comments, oldest first.
func (h *CommentHandler) ListComments(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	comments, err := h.commentService.ListComments(issueID, userID)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": dto.ToCommentDTOs(comments),
	})
}

// PostComment adds a comment to an issue.
func (h *CommentHandler) PostComment(c *gin.Context) {
	issueID, ok := issueIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CommentRequest struct {
		Content string `json:"content"`
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.PostComment(issueID, userID, req.Content)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Comment added",
		"comment": dto.ToCommentDTO(*comment),
	})
}

// EditComment updates a comment's content. Author only.
func (h *CommentHandler) EditComment(c *gin.Context) {
	commentID, ok := commentIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CommentRequest struct {
		Content string `json:"content"`
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.EditComment(commentID, userID, req.Content)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Comment updated",
		"comment": dto.ToCommentDTO(*comment),
	})
}

// DeleteComment removes a comment. Author or project LEAD.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID, ok := commentIDParam(c)
	if !ok {
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.commentService.DeleteComment(commentID, userID); err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Comment deleted",
	})
}

func commentIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("comment_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid comment ID")
		return 0, false
	}
	return id, true
}

func respondCommentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyComment):
		apierrors.BadRequest(c, "content is required")
	case errors.Is(err, services.ErrCommentNotFound):
		apierrors.NotFound(c, "Comment not found")
	case errors.Is(err, services.ErrIssueNotFound), errors.Is(err, services.ErrIssueForbidden):
		apierrors.NotFound(c, "Issue not found")
	case errors.Is(err, services.ErrNotCommentAuthor):
		apierrors.Forbidden(c, "Only the author can edit this comment")
	case errors.Is(err, services.ErrCommentDeleteForbidden):
		apierrors.Forbidden(c, "Only the author or a project LEAD can delete this comment")
	default:
		apierrors.InternalError(c, "")
	}
}
