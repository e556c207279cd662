package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/jobmarket-be/internal/api/dto"
	"github.com/cuongbtq/jobmarket-be/internal/catalog"
	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/gin-gonic/gin"
)

// CreateJob handles POST /add-job
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job, err := req.ToDomain()
	if err != nil {
		respondError(c, h.logger, err, "Invalid job")
		return
	}

	id, err := h.catalog.CreateJob(c.Request.Context(), job)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create job")
		return
	}

	c.JSON(http.StatusOK, dto.InsertResponse{
		Acknowledged: true,
		InsertedID:   id,
	})
}

// GetJob handles GET /job/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, h.logger, id) {
		return
	}

	job, err := h.catalog.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get job")
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobsByBuyer handles GET /jobs/:email
func (h *JobHandler) ListJobsByBuyer(c *gin.Context) {
	jobs, err := h.catalog.ListJobsByBuyerEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to list jobs")
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// UpdateJob handles PUT /update-job/:id. A missing job is created under the given id.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, h.logger, id) {
		return
	}

	var req dto.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job, err := req.ToDomain()
	if err != nil {
		respondError(c, h.logger, err, "Invalid job")
		return
	}

	res, err := h.catalog.UpdateJob(c.Request.Context(), id, job)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update job")
		return
	}

	c.JSON(http.StatusOK, dto.UpdateResponse{
		Acknowledged:  true,
		MatchedCount:  res.Matched,
		ModifiedCount: res.Modified,
		UpsertedID:    res.UpsertedID,
	})
}

// DeleteJob handles DELETE /job/:id
func (h *JobHandler) DeleteJob(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, h.logger, id) {
		return
	}

	res, err := h.catalog.DeleteJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to delete job")
		return
	}

	c.JSON(http.StatusOK, dto.DeleteResponse{
		Acknowledged: true,
		DeletedCount: res.Deleted,
	})
}

// ListJobs handles GET /jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs, err := h.catalog.ListAllJobs(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list jobs")
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// BrowseJobs handles GET /all-jobs?filter=&search=&sort=
func (h *JobHandler) BrowseJobs(c *gin.Context) {
	var req dto.BrowseJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	jobs, err := h.catalog.BrowseJobs(c.Request.Context(), catalog.BrowseQuery{
		Filter: req.Filter,
		Search: req.Search,
		Sort:   domain.ParseSortOrder(req.Sort),
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to browse jobs")
		return
	}

	c.JSON(http.StatusOK, jobs)
}
