package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageParams(t *testing.T) {
	p := ParsePageParams(url.Values{})
	assert.Equal(t, PageParams{Page: 1, ItemsPerPage: 10}, p)
	assert.Equal(t, 0, p.Offset())

	p = ParsePageParams(url.Values{"page": {"3"}, "itemsPerPage": {"500"}})
	assert.Equal(t, PageParams{Page: 3, ItemsPerPage: 100}, p)
	assert.Equal(t, 200, p.Offset())

	p = ParsePageParams(url.Values{"page": {"-2"}, "itemsPerPage": {"-5"}})
	assert.Equal(t, PageParams{Page: 1, ItemsPerPage: 1}, p)
}

func TestNewPagination(t *testing.T) {
	pg := NewPagination(PageParams{Page: 2, ItemsPerPage: 10}, 25)
	assert.Equal(t, 3, pg.TotalPages)
	assert.True(t, pg.HasNextPage)
	assert.True(t, pg.HasPreviousPage)

	pg = NewPagination(PageParams{Page: 1, ItemsPerPage: 10}, 0)
	assert.Equal(t, 0, pg.TotalPages)
	assert.False(t, pg.HasNextPage)
	assert.False(t, pg.HasPreviousPage)
}
