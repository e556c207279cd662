package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/jobmarket-be/internal/api/dto"
	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/gin-gonic/gin"
)

// PlaceBid handles POST /add-bid
func (h *BidHandler) PlaceBid(c *gin.Context) {
	var req dto.BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	bid, err := req.ToDomain()
	if err != nil {
		respondError(c, h.logger, err, "Invalid bid")
		return
	}

	id, err := h.ledger.PlaceBid(c.Request.Context(), bid)
	if err != nil {
		respondError(c, h.logger, err, "Failed to place bid")
		return
	}

	c.JSON(http.StatusOK, dto.InsertResponse{
		Acknowledged: true,
		InsertedID:   id,
	})
}

// ListBids handles GET /bids/:email. Requires a session for the same email.
func (h *BidHandler) ListBids(c *gin.Context) {
	var req dto.ListBidsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	bids, err := h.ledger.ListBidsForUser(c.Request.Context(), identity(c), c.Param("email"), req.Scope())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list bids")
		return
	}

	c.JSON(http.StatusOK, bids)
}

// UpdateBidStatus handles PATCH /bid-status-update/:id
func (h *BidHandler) UpdateBidStatus(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, h.logger, id) {
		return
	}

	var req dto.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	status, err := domain.ParseBidStatus(req.Status)
	if err != nil {
		respondError(c, h.logger, err, "Invalid status")
		return
	}

	res, err := h.ledger.UpdateBidStatus(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update bid status")
		return
	}

	c.JSON(http.StatusOK, dto.UpdateResponse{
		Acknowledged:  true,
		MatchedCount:  res.Matched,
		ModifiedCount: res.Modified,
	})
}
