package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/itmsdev/itms-api/internal/constants"
	"github.com/itmsdev/itms-api/internal/database"
	"github.com/itmsdev/itms-api/internal/dto"
	"github.com/itmsdev/itms-api/internal/middleware"
	"github.com/itmsdev/itms-api/internal/models"
	"github.com/itmsdev/itms-api/internal/repository"
	"github.com/itmsdev/itms-api/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type projectTestEnv struct {
	db             *gorm.DB
	projectService *services.ProjectService
	projectHandler *ProjectHandler
	memberHandler  *MemberHandler
}

func setupProjectTestEnv(t *testing.T) projectTestEnv {
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
	labelRepo := repository.NewLabelRepository(db)
	projectService := services.NewProjectService(projectRepo, userRepo, labelRepo)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return projectTestEnv{
		db:             db,
		projectService: projectService,
		projectHandler: NewProjectHandler(projectService),
		memberHandler:  NewMemberHandler(projectService),
	}
}

// projectRouter mounts the project routes with the real project middleware,
// authenticating every request as userID.
func projectRouter(env projectTestEnv, userID uint64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	})

	projects := r.Group("/api/projects")
	{
		projects.GET("", env.projectHandler.ListProjects)
		projects.POST("", env.projectHandler.CreateProject)
		projects.GET("/:project_id", env.projectHandler.GetProject)
		projects.PATCH("/:project_id", middleware.RequireProjectRole(models.RoleLead), env.projectHandler.EditProject)
		projects.PUT("/:project_id/visibility", middleware.RequireProjectRole(models.RoleLead), env.projectHandler.UpdateVisibility)
		projects.DELETE("/:project_id", middleware.RequireProjectRole(models.RoleLead), env.projectHandler.DeleteProject)

		projects.GET("/:project_id/members", env.memberHandler.ListMembers)
		projects.POST("/:project_id/members", middleware.RequireProjectRole(models.RoleLead), env.memberHandler.AddMember)
		projects.PATCH("/:project_id/members/:user_id", middleware.RequireProjectRole(models.RoleLead), env.memberHandler.ChangeMemberRole)
		projects.DELETE("/:project_id/members/:user_id", middleware.RequireProjectRole(models.RoleLead), env.memberHandler.RemoveMember)
	}
	return r
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "hashed",
		FirstName:    "Test",
		LastName:     "User",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestProject(t *testing.T, svc *services.ProjectService, key string, creatorID uint64, isPublic bool) *models.Project {
	t.Helper()
	project, err := svc.CreateProject(services.CreateProjectInput{
		Key:       key,
		Name:      key + " project",
		IsPublic:  isPublic,
		CreatorID: creatorID,
	})
	require.NoError(t, err)
	return project
}

func doRequest(t *testing.T, r *gin.Engine, method, url string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProjectHandler_CreateProject(t *testing.T) {
	env := setupProjectTestEnv(t)
	user := createTestUser(t, env.db, "lead")
	r := projectRouter(env, user.ID)

	w := doRequest(t, r, http.MethodPost, "/api/projects", map[string]any{
		"project_key": "CORE",
		"name":        "Core Platform",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Project dto.ProjectDTO `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "CORE", response.Project.ProjectKey)
	require.True(t, response.Project.IsPublic, "projects default to public")
	require.Equal(t, models.RoleLead, response.Project.UserRole)

	// The creator becomes the LEAD
	var membership models.ProjectMembership
	require.NoError(t, env.db.Where("project_id = ? AND user_id = ?", response.Project.ID, user.ID).First(&membership).Error)
	require.Equal(t, models.RoleLead, membership.Role)
}

func TestProjectHandler_CreateProject_FlexibleIsPublic(t *testing.T) {
	env := setupProjectTestEnv(t)
	user := createTestUser(t, env.db, "lead")
	r := projectRouter(env, user.ID)

	// String and numeric forms are accepted
	w := doRequest(t, r, http.MethodPost, "/api/projects", map[string]any{
		"project_key": "PRIV",
		"name":        "Private",
		"is_public":   "0",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Project dto.ProjectDTO `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.False(t, response.Project.IsPublic)

	// The false value must survive the insert, not fall back to a default
	var stored models.Project
	require.NoError(t, env.db.First(&stored, response.Project.ID).Error)
	require.False(t, stored.IsPublic, "project created with is_public=false must be private")

	// Anything else is rejected, not coerced
	w = doRequest(t, r, http.MethodPost, "/api/projects", map[string]any{
		"project_key": "OTHER",
		"name":        "Other",
		"is_public":   "maybe",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandler_CreateProject_DuplicateKey(t *testing.T) {
	env := setupProjectTestEnv(t)
	user := createTestUser(t, env.db, "lead")
	createTestProject(t, env.projectService, "CORE", user.ID, true)
	r := projectRouter(env, user.ID)

	w := doRequest(t, r, http.MethodPost, "/api/projects", map[string]any{
		"project_key": "CORE",
		"name":        "Duplicate",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestProjectHandler_GetProject_VisibilityMasking(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	outsider := createTestUser(t, env.db, "outsider")
	private := createTestProject(t, env.projectService, "PRIV", owner.ID, false)
	public := createTestProject(t, env.projectService, "PUB", owner.ID, true)

	r := projectRouter(env, outsider.ID)

	// A private project is indistinguishable from a missing one
	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/projects/%d", private.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	notFoundBody := w.Body.String()

	w = doRequest(t, r, http.MethodGet, "/api/projects/999999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, notFoundBody, w.Body.String())

	// Public projects are readable by any authenticated user, with no role
	w = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/projects/%d", public.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Project dto.ProjectDTO `json:"project"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "PUB", response.Project.ProjectKey)
	require.Empty(t, response.Project.UserRole)
}

func TestProjectHandler_ListProjects(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	viewer := createTestUser(t, env.db, "viewer")
	createTestProject(t, env.projectService, "PUB", owner.ID, true)
	private := createTestProject(t, env.projectService, "PRIV", owner.ID, false)
	hidden := createTestProject(t, env.projectService, "HIDDEN", owner.ID, false)

	_, err := env.projectService.AddMember(private.ID, "viewer", "VIEWER")
	require.NoError(t, err)

	r := projectRouter(env, viewer.ID)
	w := doRequest(t, r, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Projects []dto.ProjectDTO `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	keys := make(map[string]models.ProjectRole, len(response.Projects))
	for _, p := range response.Projects {
		keys[p.ProjectKey] = p.UserRole
	}
	require.Len(t, keys, 2)
	require.Equal(t, models.RoleViewer, keys["PRIV"])
	require.Contains(t, keys, "PUB")
	require.NotContains(t, keys, hidden.ProjectKey)
}

func TestProjectHandler_EditProject_RequiresLead(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	dev := createTestUser(t, env.db, "dev")
	outsider := createTestUser(t, env.db, "outsider")
	project := createTestProject(t, env.projectService, "CORE", owner.ID, true)

	_, err := env.projectService.AddMember(project.ID, "dev", "DEVELOPER")
	require.NoError(t, err)

	url := fmt.Sprintf("/api/projects/%d", project.ID)
	payload := map[string]any{"name": "Renamed"}

	// A member without LEAD gets a role error
	w := doRequest(t, projectRouter(env, dev.ID), http.MethodPatch, url, payload)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "Insufficient role permissions")

	// A non-member gets the same membership error whether or not the
	// project exists
	w = doRequest(t, projectRouter(env, outsider.ID), http.MethodPatch, url, payload)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "Not a member of this project")

	w = doRequest(t, projectRouter(env, outsider.ID), http.MethodPatch, "/api/projects/999999", payload)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "Not a member of this project")

	// The LEAD succeeds
	w = doRequest(t, projectRouter(env, owner.ID), http.MethodPatch, url, payload)
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Project
	require.NoError(t, env.db.First(&updated, project.ID).Error)
	require.Equal(t, "Renamed", updated.Name)
}

func TestProjectHandler_UpdateVisibility(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	project := createTestProject(t, env.projectService, "CORE", owner.ID, true)
	r := projectRouter(env, owner.ID)

	url := fmt.Sprintf("/api/projects/%d/visibility", project.ID)

	w := doRequest(t, r, http.MethodPut, url, map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "is_public is required")

	w = doRequest(t, r, http.MethodPut, url, map[string]any{"is_public": false})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Project
	require.NoError(t, env.db.First(&updated, project.ID).Error)
	require.False(t, updated.IsPublic)
}

func TestProjectHandler_DeleteProject(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	project := createTestProject(t, env.projectService, "CORE", owner.ID, true)
	r := projectRouter(env, owner.ID)

	w := doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var memberships int64
	require.NoError(t, env.db.Model(&models.ProjectMembership{}).Where("project_id = ?", project.ID).Count(&memberships).Error)
	require.Zero(t, memberships)
}

func TestMemberHandler_ListMembers(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	dev := createTestUser(t, env.db, "dev")
	viewer := createTestUser(t, env.db, "viewer")
	outsider := createTestUser(t, env.db, "outsider")
	project := createTestProject(t, env.projectService, "PRIV", owner.ID, false)

	_, err := env.projectService.AddMember(project.ID, dev.Username, "DEVELOPER")
	require.NoError(t, err)
	_, err = env.projectService.AddMember(project.ID, viewer.Username, "VIEWER")
	require.NoError(t, err)

	url := fmt.Sprintf("/api/projects/%d/members", project.ID)

	// Members see the roster ordered LEAD, DEVELOPER, VIEWER
	w := doRequest(t, projectRouter(env, dev.ID), http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Members []dto.MemberDTO `json:"members"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Members, 3)
	require.Equal(t, models.RoleLead, response.Members[0].Role)
	require.Equal(t, models.RoleDeveloper, response.Members[1].Role)
	require.Equal(t, models.RoleViewer, response.Members[2].Role)

	// Unlike project reads, this endpoint distinguishes 403 from 404
	w = doRequest(t, projectRouter(env, outsider.ID), http.MethodGet, url, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, projectRouter(env, outsider.ID), http.MethodGet, "/api/projects/999999/members", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMemberHandler_AddMember(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	dev := createTestUser(t, env.db, "dev")
	project := createTestProject(t, env.projectService, "CORE", owner.ID, true)
	r := projectRouter(env, owner.ID)

	url := fmt.Sprintf("/api/projects/%d/members", project.ID)

	// By email this time; username works too
	w := doRequest(t, r, http.MethodPost, url, map[string]any{
		"identifier": dev.Email,
		"role":       "developer",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Member dto.MemberDTO `json:"member"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, dev.ID, response.Member.UserID)
	require.Equal(t, models.RoleDeveloper, response.Member.Role, "role parsing is case-insensitive")

	w = doRequest(t, r, http.MethodPost, url, map[string]any{
		"identifier": dev.Username,
		"role":       "VIEWER",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, r, http.MethodPost, url, map[string]any{
		"identifier": "nobody",
		"role":       "VIEWER",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, http.MethodPost, url, map[string]any{
		"identifier": dev.Username,
		"role":       "ADMIN",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMemberHandler_ChangeMemberRole(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	dev := createTestUser(t, env.db, "dev")
	project := createTestProject(t, env.projectService, "CORE", owner.ID, true)

	_, err := env.projectService.AddMember(project.ID, dev.Username, "DEVELOPER")
	require.NoError(t, err)

	r := projectRouter(env, owner.ID)

	// No-op change reports itself without touching the row
	w := doRequest(t, r, http.MethodPatch,
		fmt.Sprintf("/api/projects/%d/members/%d", project.ID, dev.ID),
		map[string]any{"role": "DEVELOPER"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Member already has this role")

	// The sole LEAD cannot demote themselves
	w = doRequest(t, r, http.MethodPatch,
		fmt.Sprintf("/api/projects/%d/members/%d", project.ID, owner.ID),
		map[string]any{"role": "VIEWER"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "only LEAD")

	// Promote the developer, then the original LEAD may step down
	w = doRequest(t, r, http.MethodPatch,
		fmt.Sprintf("/api/projects/%d/members/%d", project.ID, dev.ID),
		map[string]any{"role": "LEAD"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodPatch,
		fmt.Sprintf("/api/projects/%d/members/%d", project.ID, owner.ID),
		map[string]any{"role": "VIEWER"})
	require.Equal(t, http.StatusOK, w.Code)

	var membership models.ProjectMembership
	require.NoError(t, env.db.Where("project_id = ? AND user_id = ?", project.ID, owner.ID).First(&membership).Error)
	require.Equal(t, models.RoleViewer, membership.Role)
}

func TestMemberHandler_RemoveMember(t *testing.T) {
	env := setupProjectTestEnv(t)
	owner := createTestUser(t, env.db, "owner")
	dev := createTestUser(t, env.db, "dev")
	project := createTestProject(t, env.projectService, "CORE", owner.ID, true)

	_, err := env.projectService.AddMember(project.ID, dev.Username, "DEVELOPER")
	require.NoError(t, err)

	// Give the developer an assignment so removal has something to clear
	issue := &models.Issue{
		ProjectID:   project.ID,
		IssueNumber: 1,
		Title:       "Assigned work",
		Type:        models.IssueTypeTask,
		Status:      models.IssueStatusOpen,
		Priority:    models.IssuePriorityMedium,
		ReporterID:  owner.ID,
		AssigneeID:  &dev.ID,
	}
	require.NoError(t, env.db.Create(issue).Error)

	r := projectRouter(env, owner.ID)

	// The sole LEAD cannot remove themselves
	w := doRequest(t, r, http.MethodDelete,
		fmt.Sprintf("/api/projects/%d/members/%d", project.ID, owner.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "Cannot remove yourself")

	w = doRequest(t, r, http.MethodDelete,
		fmt.Sprintf("/api/projects/%d/members/%d", project.ID, dev.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Membership gone, assignment cleared
	var count int64
	require.NoError(t, env.db.Model(&models.ProjectMembership{}).
		Where("project_id = ? AND user_id = ?", project.ID, dev.ID).Count(&count).Error)
	require.Zero(t, count)

	var reloaded models.Issue
	require.NoError(t, env.db.First(&reloaded, issue.ID).Error)
	require.Nil(t, reloaded.AssigneeID)

	// Removing an absent member is a 404
	w = doRequest(t, r, http.MethodDelete,
		fmt.Sprintf("/api/projects/%d/members/%d", project.ID, dev.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
