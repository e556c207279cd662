package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/jobmarket-be/internal/api/dto"
	"github.com/cuongbtq/jobmarket-be/internal/auth"
	"github.com/cuongbtq/jobmarket-be/internal/catalog"
	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/ledger"
	"github.com/cuongbtq/jobmarket-be/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const identityKey = "identity"

// UnauthorizedMessage is the single body sent for every authentication or authorization failure
const UnauthorizedMessage = "unauthorized access"

// SessionConfig controls the session cookie
type SessionConfig struct {
	CookieName string
	// Production enables Secure and SameSite=None for cross-site frontends
	Production bool
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Store   store.Store
	Catalog *catalog.Service
	Ledger  *ledger.Service
	Tokens  *auth.TokenService
	Session SessionConfig
}

// JobHandler handles job catalog requests
type JobHandler struct {
	logger  *slog.Logger
	catalog *catalog.Service
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:  deps.Logger,
		catalog: deps.Catalog,
	}
}

// BidHandler handles bid ledger requests
type BidHandler struct {
	logger *slog.Logger
	ledger *ledger.Service
}

func NewBidHandler(deps *Dependencies) *BidHandler {
	return &BidHandler{
		logger: deps.Logger,
		ledger: deps.Ledger,
	}
}

// SessionHandler issues and clears the session cookie
type SessionHandler struct {
	logger  *slog.Logger
	tokens  *auth.TokenService
	session SessionConfig
}

func NewSessionHandler(deps *Dependencies) *SessionHandler {
	return &SessionHandler{
		logger:  deps.Logger,
		tokens:  deps.Tokens,
		session: deps.Session,
	}
}

// SetIdentity stores the authenticated caller on the request context
func SetIdentity(c *gin.Context, identity auth.Identity) {
	c.Set(identityKey, identity)
}

func identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

// Unauthorized aborts the request with the uniform 401 body
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.MessageResponse{Message: UnauthorizedMessage})
}

// validID rejects ids the stores could never have generated
func validID(c *gin.Context, logger *slog.Logger, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		logger.Warn("Invalid id format", slog.String("id", id), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "id must be a valid UUID",
		})
		return false
	}
	return true
}

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, logger *slog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrDuplicateBid):
		c.String(http.StatusBadRequest, domain.ErrDuplicateBid.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		Unauthorized(c)
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logger.Error(msg, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
