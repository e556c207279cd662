package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBidStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    BidStatus
		wantErr bool
	}{
		{name: "empty defaults to pending", input: "", want: BidStatusPending},
		{name: "pending", input: "Pending", want: BidStatusPending},
		{name: "in progress with space", input: "In Progress", want: BidStatusInProgress},
		{name: "in-progress", input: "in-progress", want: BidStatusInProgress},
		{name: "complete", input: "COMPLETE", want: BidStatusComplete},
		{name: "rejected with padding", input: "  rejected ", want: BidStatusRejected},
		{name: "unknown", input: "archived", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBidStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortNone, ParseSortOrder(""))
	assert.Equal(t, SortAscending, ParseSortOrder("asc"))
	assert.Equal(t, SortDescending, ParseSortOrder("dsc"))
	assert.Equal(t, SortDescending, ParseSortOrder("desc"))
	assert.Equal(t, SortDescending, ParseSortOrder("ASC"))
}
