package constants

// Context keys shared between middleware and handlers.
const (
	ContextKeyUserID = "user_id"
	ContextKeyTask   = "task"
)

// Pagination limits.
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MinPasswordLength is the minimum accepted password length at signup.
const MinPasswordLength = 8

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "planner_session"
