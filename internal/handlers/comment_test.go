package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/itmsdev/itms-api/internal/constants"
	"github.com/itmsdev/itms-api/internal/database"
	"github.com/itmsdev/itms-api/internal/dto"
	"github.com/itmsdev/itms-api/internal/history"
	"github.com/itmsdev/itms-api/internal/models"
	"github.com/itmsdev/itms-api/internal/repository"
	"github.com/itmsdev/itms-api/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type commentTestEnv struct {
	db             *gorm.DB
	projectService *services.ProjectService
	issueService   *services.IssueService
	commentService *services.CommentService
	handler        *CommentHandler
}

func setupCommentTestEnv(t *testing.T) commentTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.Issue{},
		&models.Label{},
		&models.IssueLabel{},
		&models.Comment{},
		&models.IssueHistory{},
	)
	require.NoError(t, err)

	database.SetDB(db)

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	labelRepo := repository.NewLabelRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	recorder := history.NewGormRecorder(db)

	projectService := services.NewProjectService(projectRepo, userRepo, labelRepo)
	issueService := services.NewIssueService(issueRepo, labelRepo, projectRepo, recorder)
	commentService := services.NewCommentService(commentRepo, issueService)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return commentTestEnv{
		db:             db,
		projectService: projectService,
		issueService:   issueService,
		commentService: commentService,
		handler:        NewCommentHandler(commentService),
	}
}

func commentRouter(env commentTestEnv, userID uint64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	})
	r.GET("/api/issues/:issue_id/comments", env.handler.ListComments)
	r.POST("/api/issues/:issue_id/comments", env.handler.PostComment)
	r.PATCH("/api/comments/:comment_id", env.handler.EditComment)
	r.DELETE("/api/comments/:comment_id", env.handler.DeleteComment)
	return r
}

func commentFixture(t *testing.T, env commentTestEnv, isPublic bool) (lead, dev *models.User, issue *models.Issue) {
	t.Helper()

	lead = createTestUser(t, env.db, "lead")
	dev = createTestUser(t, env.db, "dev")

	project, err := env.projectService.CreateProject(services.CreateProjectInput{
		Key:       "CORE",
		Name:      "Core",
		IsPublic:  isPublic,
		CreatorID: lead.ID,
	})
	require.NoError(t, err)
	_, err = env.projectService.AddMember(project.ID, "dev", "DEVELOPER")
	require.NoError(t, err)

	issue, err = env.issueService.CreateIssue(services.CreateIssueInput{
		ProjectID:  project.ID,
		ReporterID: lead.ID,
		Title:      "Discussed work",
	})
	require.NoError(t, err)
	return lead, dev, issue
}

func TestCommentHandler_PostAndList(t *testing.T) {
	env := setupCommentTestEnv(t)
	_, dev, issue := commentFixture(t, env, true)

	r := commentRouter(env, dev.ID)
	url := fmt.Sprintf("/api/issues/%d/comments", issue.ID)

	w := doRequest(t, r, http.MethodPost, url, map[string]any{"content": "First!"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, r, http.MethodPost, url, map[string]any{"content": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Comments []dto.CommentDTO `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Comments, 1)
	require.Equal(t, "First!", response.Comments[0].Content)
	require.Equal(t, dev.ID, response.Comments[0].AuthorID)
}

func TestCommentHandler_PrivateIssueMasked(t *testing.T) {
	env := setupCommentTestEnv(t)
	lead, _, issue := commentFixture(t, env, false)

	outsider := createTestUser(t, env.db, "outsider")
	_, err := env.commentService.PostComment(issue.ID, lead.ID, "internal note")
	require.NoError(t, err)

	r := commentRouter(env, outsider.ID)
	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/issues/%d/comments", issue.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/issues/%d/comments", issue.ID),
		map[string]any{"content": "drive-by"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentHandler_EditAuthorOnly(t *testing.T) {
	env := setupCommentTestEnv(t)
	lead, dev, issue := commentFixture(t, env, true)

	comment, err := env.commentService.PostComment(issue.ID, dev.ID, "original")
	require.NoError(t, err)

	url := fmt.Sprintf("/api/comments/%d", comment.ID)

	// Not even the LEAD may edit someone else's comment
	w := doRequest(t, commentRouter(env, lead.ID), http.MethodPatch, url, map[string]any{"content": "edited"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, commentRouter(env, dev.ID), http.MethodPatch, url, map[string]any{"content": "edited"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Comment
	require.NoError(t, env.db.First(&updated, comment.ID).Error)
	require.Equal(t, "edited", updated.Content)
}

func TestCommentHandler_DeleteAuthorOrLead(t *testing.T) {
	env := setupCommentTestEnv(t)
	lead, dev, issue := commentFixture(t, env, true)

	bystander := createTestUser(t, env.db, "bystander")

	first, err := env.commentService.PostComment(issue.ID, dev.ID, "one")
	require.NoError(t, err)
	second, err := env.commentService.PostComment(issue.ID, dev.ID, "two")
	require.NoError(t, err)

	// A third party may not delete
	w := doRequest(t, commentRouter(env, bystander.ID), http.MethodDelete,
		fmt.Sprintf("/api/comments/%d", first.ID), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// The author may
	w = doRequest(t, commentRouter(env, dev.ID), http.MethodDelete,
		fmt.Sprintf("/api/comments/%d", first.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// So may a project LEAD
	w = doRequest(t, commentRouter(env, lead.ID), http.MethodDelete,
		fmt.Sprintf("/api/comments/%d", second.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Deleting a deleted comment is a 404
	w = doRequest(t, commentRouter(env, dev.ID), http.MethodDelete,
		fmt.Sprintf("/api/comments/%d", first.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
