package domain

import "time"

// Buyer is the owner of a job, embedded in the job document
type Buyer struct {
	Email string `json:"email" bson:"email"`
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
	Photo string `json:"photo,omitempty" bson:"photo,omitempty"`
}

// Job is a task posted by a buyer
type Job struct {
	ID          string    `json:"_id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Category    string    `json:"category" bson:"category"`
	Description string    `json:"description" bson:"description"`
	MinPrice    float64   `json:"min_price" bson:"min_price"`
	MaxPrice    float64   `json:"max_price" bson:"max_price"`
	Deadline    time.Time `json:"deadline" bson:"deadline"`
	Buyer       Buyer     `json:"buyer" bson:"buyer"`
	BidCount    int       `json:"bid_count" bson:"bid_count"`
}

// SortOrder selects the deadline ordering of a job listing
type SortOrder int

const (
	SortNone SortOrder = iota
	SortAscending
	SortDescending
)

// ParseSortOrder maps the sort query value: "asc" is ascending, any other
// non-empty value is descending and the empty string leaves store order.
func ParseSortOrder(s string) SortOrder {
	switch s {
	case "":
		return SortNone
	case "asc":
		return SortAscending
	default:
		return SortDescending
	}
}
