package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationParams(t *testing.T) {
	tests := []struct {
		name       string
		params     PaginationParams
		total      int
		wantOffset int
		wantPages  int
	}{
		{name: "first page", params: PaginationParams{Page: 1, PageSize: 10}, total: 21, wantOffset: 0, wantPages: 3},
		{name: "third page", params: PaginationParams{Page: 3, PageSize: 10}, total: 21, wantOffset: 20, wantPages: 3},
		{name: "exact fit", params: PaginationParams{Page: 2, PageSize: 5}, total: 10, wantOffset: 5, wantPages: 2},
		{name: "empty list", params: PaginationParams{Page: 1, PageSize: 20}, total: 0, wantOffset: 0, wantPages: 0},
		{name: "page below one", params: PaginationParams{Page: 0, PageSize: 20}, total: 3, wantOffset: 0, wantPages: 1},
		{name: "unpaged", params: PaginationParams{Page: 4}, total: 50, wantOffset: 0, wantPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOffset, tt.params.Offset())
			assert.Equal(t, tt.wantPages, tt.params.PageCount(tt.total))
			assert.Equal(t, tt.params.PageSize > 0, tt.params.Paged())
		})
	}
}
