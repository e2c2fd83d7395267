package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, meta := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, Pagination{Page: 2, PerPage: 2, Total: 5, TotalPages: 3}, meta)

	page, meta = Paginate(items, 3, 2)
	assert.Equal(t, []int{5}, page)
	assert.Equal(t, 3, meta.TotalPages)

	page, _ = Paginate(items, 9, 2)
	assert.Empty(t, page)
	assert.NotNil(t, page)

	page, meta = Paginate(items, 0, 0)
	assert.Equal(t, items, page)
	assert.Equal(t, DefaultPerPage, meta.PerPage)
	assert.Equal(t, 1, meta.Page)
}

func TestNewPaginationCapsPageSize(t *testing.T) {
	meta := NewPagination(1, MaxPerPage*4, 0)
	assert.Equal(t, MaxPerPage, meta.PerPage)
	assert.Equal(t, 0, meta.TotalPages)
}
