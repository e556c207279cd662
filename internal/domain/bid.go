package domain

import (
	"fmt"
	"strings"
	"time"
)

// BidStatus is the state of a bid as set by the job owner.
// Any status may move to any other status.
type BidStatus string

const (
	BidStatusPending    BidStatus = "Pending"
	BidStatusInProgress BidStatus = "In Progress"
	BidStatusComplete   BidStatus = "Complete"
	BidStatusRejected   BidStatus = "Rejected"
)

// ParseBidStatus converts unvalidated input into a BidStatus.
// An empty value yields the implicit Pending default.
func ParseBidStatus(s string) (BidStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending":
		return BidStatusPending, nil
	case "in progress", "in-progress", "in_progress", "inprogress":
		return BidStatusInProgress, nil
	case "complete", "completed":
		return BidStatusComplete, nil
	case "rejected":
		return BidStatusRejected, nil
	default:
		return "", fmt.Errorf("%w: unknown bid status %q", ErrInvalidInput, s)
	}
}

// BidScope selects which email field a bid listing filters on
type BidScope int

const (
	// ScopeBidder lists bids placed by the email
	ScopeBidder BidScope = iota
	// ScopeBuyer lists bids on jobs owned by the email
	ScopeBuyer
)

// Bid is a freelancer's offer on a job
type Bid struct {
	ID        string    `json:"_id" bson:"_id"`
	Email     string    `json:"email" bson:"email"`
	JobID     string    `json:"jobId" bson:"jobId"`
	Buyer     string    `json:"buyer" bson:"buyer"`
	Status    BidStatus `json:"status" bson:"status"`
	Price     float64   `json:"price" bson:"price"`
	Comment   string    `json:"comment,omitempty" bson:"comment,omitempty"`
	Deadline  time.Time `json:"deadline" bson:"deadline"`
	Title     string    `json:"title,omitempty" bson:"title,omitempty"`
	Category  string    `json:"category,omitempty" bson:"category,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// BidPlacedEvent is published after a bid has been stored
type BidPlacedEvent struct {
	BidID    string    `json:"bid_id"`
	JobID    string    `json:"job_id"`
	Email    string    `json:"email"`
	PlacedAt time.Time `json:"placed_at"`
}
