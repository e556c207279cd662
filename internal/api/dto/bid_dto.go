package dto

import "github.com/cuongbtq/jobmarket-be/internal/domain"

// BidRequest is the body of POST /add-bid
type BidRequest struct {
	Email    string  `json:"email" binding:"required"`
	JobID    string  `json:"jobId" binding:"required"`
	Buyer    string  `json:"buyer"`
	Price    float64 `json:"price"`
	Comment  string  `json:"comment"`
	Deadline string  `json:"deadline"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Status   string  `json:"status"`
}

func (r BidRequest) ToDomain() (domain.Bid, error) {
	deadline, err := ParseDeadline(r.Deadline)
	if err != nil {
		return domain.Bid{}, err
	}

	status, err := domain.ParseBidStatus(r.Status)
	if err != nil {
		return domain.Bid{}, err
	}

	return domain.Bid{
		Email:    r.Email,
		JobID:    r.JobID,
		Buyer:    r.Buyer,
		Status:   status,
		Price:    r.Price,
		Comment:  r.Comment,
		Deadline: deadline,
		Title:    r.Title,
		Category: r.Category,
	}, nil
}

// ListBidsRequest is the query of GET /bids/:email. Any non-empty buyer
// value lists bids received as a job owner.
type ListBidsRequest struct {
	Buyer string `form:"buyer"`
}

func (r ListBidsRequest) Scope() domain.BidScope {
	if r.Buyer != "" {
		return domain.ScopeBuyer
	}
	return domain.ScopeBidder
}

// StatusUpdateRequest is the body of PATCH /bid-status-update/:id
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}
