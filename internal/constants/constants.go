package constants

// Session
const (
	SessionCookieName = "itms_session"
	ContextKeyUserID  = "user_id"
)

// Context keys populated by access middleware
const (
	ContextKeyProject    = "project"
	ContextKeyMembership = "project_membership"
)

// Validation limits
const (
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
