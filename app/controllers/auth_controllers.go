package controllers

import (
	"time"

	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/config"
	"github.com/developlogy/sitebuilder/pkg/auth"
	"github.com/developlogy/sitebuilder/pkg/ctx"
	"github.com/developlogy/sitebuilder/pkg/middleware"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

type magicLinkRequest struct {
	Email string `json:"email" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type verifyCodeRequest struct {
	AttemptID string `json:"attemptId" validate:"required"`
	Code      string `json:"code"      validate:"required"`
}

// RequestLink emails a sign-in link and code. The attempt id is returned so
// the client can finish with the code instead of the link.
func (ac *AuthController) RequestLink(c *ctx.Context) {
	var in magicLinkRequest
	if !c.BindJSON(&in) {
		return
	}
	attempt, err := ac.service.RequestLink(c.Context(), in.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Created(map[string]any{
		"attemptId": attempt.ID,
		"state":     attempt.State,
		"expiresAt": attempt.ExpiresAt,
	})
}

func (ac *AuthController) Verify(c *ctx.Context) {
	var in verifyRequest
	if !c.BindJSON(&in) {
		return
	}
	sess, err := ac.service.Verify(c.Context(), in.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.signIn(c, sess)
}

func (ac *AuthController) VerifyCode(c *ctx.Context) {
	var in verifyCodeRequest
	if !c.BindJSON(&in) {
		return
	}
	sess, err := ac.service.VerifyCode(c.Context(), in.AttemptID, in.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	ac.signIn(c, sess)
}

func (ac *AuthController) signIn(c *ctx.Context, sess *services.AuthSession) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetCookie(middleware.SessionCookie, sess.Token, maxAge, config.IsProduction())
	c.Success(sess)
}

func (ac *AuthController) Me(c *ctx.Context) {
	user, err := ac.service.CurrentUser(c.Context(), c.UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(user)
}

// Logout revokes the current session token and clears the cookie.
func (ac *AuthController) Logout(c *ctx.Context) {
	claims, ok := auth.FromContext(c.Context())
	if !ok {
		c.Unauthorized()
		return
	}
	if err := ac.service.SignOut(c.Context(), claims); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(middleware.SessionCookie, "", -1, config.IsProduction())
	c.Message("Signed out")
}
