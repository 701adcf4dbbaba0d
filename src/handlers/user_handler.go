// src/handlers/user_handler.go
package handlers

import (
	"regexp"

	"github.com/username/folioledger/src/security"
	"github.com/username/folioledger/src/services"
	"golang.org/x/oauth2"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var passwordRegex = regexp.MustCompile(`^.{6,}$`)

var googleOauthConfig *oauth2.Config

// UserHandler owns the identity surface: registration, login, logout, and
// the Google OAuth flow. The auth middleware also hangs off it so every
// protected route shares the same token validation.
type UserHandler struct {
	authService     *security.AuthService
	identityService services.IdentityService
}

func NewUserHandler(authService *security.AuthService, identityService services.IdentityService) *UserHandler {
	return &UserHandler{
		authService:     authService,
		identityService: identityService,
	}
}
