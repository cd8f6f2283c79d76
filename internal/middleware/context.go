package middleware

import (
	"context"

	"go-blog-app/internal/auth"
	"go-blog-app/internal/service"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

// UserInfo represents the essential user information resolved from the session.
type UserInfo struct {
	ID       int64
	Username string
	IsAdmin  bool
}

// IsAuthenticated reports whether the request belongs to a logged-in account.
func (u *UserInfo) IsAuthenticated() bool {
	return u.ID != 0
}

// Subject is the casbin subject of the request.
func (u *UserInfo) Subject() string {
	if !u.IsAuthenticated() {
		return auth.RoleAnonymous
	}
	return u.Username
}

// Principal converts the request identity for the service layer.
func (u *UserInfo) Principal() service.Principal {
	if !u.IsAuthenticated() {
		return service.Anonymous
	}
	return service.Principal{UserID: u.ID, Username: u.Username}
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	// Return an anonymous user if no user info is found in the context.
	return &UserInfo{}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}
