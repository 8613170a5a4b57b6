package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"cafezao-backend-go/internal/models"
)

// ErrorResponse is a local definition for sending standardized error
// messages. It mirrors the one in internal/api/dto_models.go to avoid import
// cycles.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// UserDirectory resolves a user document by its ID. Satisfied by
// core.UserService.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// AuthMiddleware provides Gin middleware for request authentication. Two
// credential kinds are accepted: a Firebase ID token, whose UID doubles as
// the user document ID, and the document ID itself, which the login endpoint
// returns and the mobile client caches as its session token.
type AuthMiddleware struct {
	firebaseAuthClient *auth.Client
	users              UserDirectory
}

// NewAuthMiddleware creates a new AuthMiddleware instance. A nil auth client
// disables the Firebase token path; the directory is required.
func NewAuthMiddleware(fbAuthClient *auth.Client, users UserDirectory) *AuthMiddleware {
	if users == nil {
		log.Fatal("CRITICAL_ERROR: User directory is not initialized for AuthMiddleware.")
	}
	return &AuthMiddleware{firebaseAuthClient: fbAuthClient, users: users}
}

// VerifyToken authenticates the Authorization header and sets the caller's
// identity in the Gin context.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}
		credential := parts[1]

		if m.firebaseAuthClient != nil {
			if token, err := m.firebaseAuthClient.VerifyIDToken(c.Request.Context(), credential); err == nil {
				c.Set("userID", token.UID)
				if email, ok := token.Claims["email"].(string); ok {
					c.Set("userEmail", email)
				}
				if name, ok := token.Claims["name"].(string); ok {
					c.Set("userDisplayName", name)
				}
				c.Next()
				return
			}
		}

		user, err := m.users.GetUser(c.Request.Context(), credential)
		if err != nil {
			log.Printf("AuthMiddleware: credential resolved neither as Firebase ID token nor as session token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("userEmail", user.Email)
		c.Set("userDisplayName", user.DisplayName())

		c.Next()
	}
}

// GetUserID extracts the authenticated user ID set by VerifyToken.
func GetUserID(c *gin.Context) (string, bool) {
	userID, ok := c.Get("userID")
	if !ok {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}
