package router

import (
	"net/http"

	"github.com/cuongbtq/jobmarket-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// Options holds router settings that are not handler dependencies
type Options struct {
	AllowedOrigins []string
	// BidLimiter throttles POST /add-bid; nil disables throttling
	BidLimiter Allower
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(opts.AllowedOrigins))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Job marketplace server is running")
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := deps.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "jobmarket-api-service",
		})
	})

	sessionHandler := handler.NewSessionHandler(deps)
	jobHandler := handler.NewJobHandler(deps)
	bidHandler := handler.NewBidHandler(deps)

	// Session
	r.POST("/jwt", sessionHandler.IssueSession)
	r.GET("/logout", sessionHandler.EndSession)

	// Jobs
	r.POST("/add-job", jobHandler.CreateJob)
	r.GET("/job/:id", jobHandler.GetJob)
	r.DELETE("/job/:id", jobHandler.DeleteJob)
	r.PUT("/update-job/:id", jobHandler.UpdateJob)
	r.GET("/jobs", jobHandler.ListJobs)
	r.GET("/jobs/:email", jobHandler.ListJobsByBuyer)
	r.GET("/all-jobs", jobHandler.BrowseJobs)

	// Bids
	placeBid := []gin.HandlerFunc{bidHandler.PlaceBid}
	if opts.BidLimiter != nil {
		placeBid = append([]gin.HandlerFunc{RateLimitMiddleware(opts.BidLimiter, deps.Logger)}, placeBid...)
	}
	r.POST("/add-bid", placeBid...)
	r.GET("/bids/:email", RequireSession(deps.Tokens, deps.Session.CookieName, deps.Logger), bidHandler.ListBids)
	r.PATCH("/bid-status-update/:id", bidHandler.UpdateBidStatus)

	return r
}
