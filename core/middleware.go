package core

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const contextSessionKey = "session"

// SessionMiddleware resolves the request's session cookie against the
// shared store and exposes the session to handlers. The session is not
// saved here: the TTL is refreshed only where a handler saves it.
func SessionMiddleware(store *RedisSessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.Get(c.Request, sessionName)
		if err != nil {
			log.Printf("session resolve failed: %v", err)
			renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
			c.Abort()
			return
		}
		c.Set(contextSessionKey, session)
		c.Next()
	}
}

// RequireAuth redirects unauthenticated requests to the login page.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUsername(c); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminOnly ensures the session user currently holds the admin role.
// The role is read from the user store on every request rather than from
// the session, so a demotion locks the user out immediately.
func AdminOnly(users UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := currentUsername(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		u, err := users.FindByUsername(c.Request.Context(), username)
		if err != nil {
			log.Printf("admin check failed for %q: %v", username, err)
			renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
			c.Abort()
			return
		}
		if u == nil || u.Role != RoleAdmin {
			renderError(c, http.StatusForbidden, "You are not authorized to view this page.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// currentSession returns the session placed by SessionMiddleware.
func currentSession(c *gin.Context) *sessions.Session {
	sessionAny, _ := c.Get(contextSessionKey)
	session, _ := sessionAny.(*sessions.Session)
	return session
}

// currentUsername returns the authenticated username bound to the
// session, or false when the session is absent, expired, or anonymous.
func currentUsername(c *gin.Context) (string, bool) {
	session := currentSession(c)
	if session == nil {
		return "", false
	}
	authenticated, _ := session.Values[sessionKeyAuthenticated].(bool)
	username, _ := session.Values[sessionKeyUsername].(string)
	if !authenticated || username == "" {
		return "", false
	}
	return username, true
}
