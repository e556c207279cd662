package dto

import (
	"fmt"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/domain"
)

// Accepted deadline layouts: the date input of the web form, then full timestamps
var deadlineLayouts = []string{"2006-01-02", time.RFC3339}

type BuyerDTO struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

// JobRequest is the body of POST /add-job and PUT /update-job/:id
type JobRequest struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	MinPrice    float64  `json:"min_price"`
	MaxPrice    float64  `json:"max_price"`
	Deadline    string   `json:"deadline"`
	Buyer       BuyerDTO `json:"buyer"`
}

func (r JobRequest) ToDomain() (domain.Job, error) {
	deadline, err := ParseDeadline(r.Deadline)
	if err != nil {
		return domain.Job{}, err
	}

	return domain.Job{
		Title:       r.Title,
		Category:    r.Category,
		Description: r.Description,
		MinPrice:    r.MinPrice,
		MaxPrice:    r.MaxPrice,
		Deadline:    deadline,
		Buyer: domain.Buyer{
			Email: r.Buyer.Email,
			Name:  r.Buyer.Name,
			Photo: r.Buyer.Photo,
		},
	}, nil
}

// BrowseJobsRequest is the query of GET /all-jobs
type BrowseJobsRequest struct {
	Filter string `form:"filter"`
	Search string `form:"search"`
	Sort   string `form:"sort"`
}

type InsertResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type UpdateResponse struct {
	Acknowledged  bool   `json:"acknowledged"`
	MatchedCount  int64  `json:"matchedCount"`
	ModifiedCount int64  `json:"modifiedCount"`
	UpsertedID    string `json:"upsertedId,omitempty"`
}

type DeleteResponse struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

type SessionRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ParseDeadline accepts an empty string as the zero time
func ParseDeadline(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: deadline %q is not a date", domain.ErrInvalidInput, s)
}
