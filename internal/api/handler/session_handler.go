package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/jobmarket-be/internal/api/dto"
	"github.com/cuongbtq/jobmarket-be/internal/auth"
	"github.com/gin-gonic/gin"
)

// IssueSession handles POST /jwt
func (h *SessionHandler) IssueSession(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid session request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "email is required",
		})
		return
	}

	token, err := h.tokens.Issue(auth.Identity{Email: req.Email})
	if err != nil {
		if errors.Is(err, auth.ErrMissingEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
			return
		}
		h.logger.Error("Failed to issue session", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue session"})
		return
	}

	h.setCookie(c, token, int(h.tokens.TTL().Seconds()))
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// EndSession handles GET /logout. Tokens are stateless, so only the cookie is cleared.
func (h *SessionHandler) EndSession(c *gin.Context) {
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *SessionHandler) setCookie(c *gin.Context, value string, maxAge int) {
	sameSite := http.SameSiteStrictMode
	if h.session.Production {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie(h.session.CookieName, value, maxAge, "/", "", h.session.Production, true)
}
