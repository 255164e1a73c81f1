package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/itmsdev/itms-api/internal/authz"
	"github.com/itmsdev/itms-api/internal/constants"
	"github.com/itmsdev/itms-api/internal/database"
	apierrors "github.com/itmsdev/itms-api/internal/errors"
	"github.com/itmsdev/itms-api/internal/models"
	"gorm.io/gorm"
)

// ProjectIDParam parses the project_id URL parameter.
func ProjectIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("project_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return 0, false
	}
	return id, true
}

// RequireProjectVisible loads the project named by the project_id parameter
// and aborts with 404 unless the user may see it. A private project the user
// is not a member of is indistinguishable from a missing one. The project
// and the user's role land in the request context.
func RequireProjectVisible() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := ProjectIDParam(c)
		if !ok {
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		project, membership, err := loadProjectState(projectID, userID)
		if err != nil {
			apierrors.InternalError(c, "Failed to load project")
			c.Abort()
			return
		}

		vis := authz.Visibility(project, membership)
		if !vis.Visible {
			apierrors.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProject, *project)
		if membership != nil {
			c.Set(constants.ContextKeyMembership, *membership)
		}
		c.Next()
	}
}

// RequireProjectRole gates a project-scoped route to members holding one of
// the allowed roles. Non-members get the same 403 whether the project exists
// or not, matching the role resolution order: membership first, role second.
func RequireProjectRole(allowed ...models.ProjectRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := ProjectIDParam(c)
		if !ok {
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		project, membership, err := loadProjectState(projectID, userID)
		if err != nil {
			apierrors.InternalError(c, "Failed to load project")
			c.Abort()
			return
		}

		if membership == nil {
			apierrors.Forbidden(c, "Not a member of this project")
			c.Abort()
			return
		}

		if !authz.RoleAllowed(membership.Role, allowed...) {
			apierrors.Forbidden(c, "Insufficient role permissions")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProject, *project)
		c.Set(constants.ContextKeyMembership, *membership)
		c.Next()
	}
}

// GetProject retrieves the project loaded by project middleware.
func GetProject(c *gin.Context) (models.Project, bool) {
	value, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return models.Project{}, false
	}
	project, ok := value.(models.Project)
	return project, ok
}

// GetMembership retrieves the caller's membership loaded by project
// middleware, when the caller is a member.
func GetMembership(c *gin.Context) (models.ProjectMembership, bool) {
	value, exists := c.Get(constants.ContextKeyMembership)
	if !exists {
		return models.ProjectMembership{}, false
	}
	membership, ok := value.(models.ProjectMembership)
	return membership, ok
}

// loadProjectState fetches the project row and the user's membership row.
// Either may be nil when absent.
func loadProjectState(projectID, userID uint64) (*models.Project, *models.ProjectMembership, error) {
	var project models.Project
	if err := database.GetDB().First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var membership models.ProjectMembership
	err := database.GetDB().
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &project, nil, nil
		}
		return nil, nil, err
	}

	return &project, &membership, nil
}
