package subdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate_ThirteenItemsInPagesOfTen(t *testing.T) {
	items := sequence(13)

	first, meta := Paginate(items, 1, 10)
	assert.Equal(t, sequence(10), first)
	assert.Equal(t, PageMeta{Total: 13, CurrentPage: 1, PerPage: 10, TotalPage: 2}, meta)

	second, meta := Paginate(items, 2, 10)
	assert.Equal(t, []int{10, 11, 12}, second)
	assert.Equal(t, 2, meta.TotalPage)
}

func TestPaginate_PageBeyondRangeIsEmpty(t *testing.T) {
	page, meta := Paginate(sequence(13), 5, 10)

	assert.NotNil(t, page)
	assert.Empty(t, page)
	assert.Equal(t, 2, meta.TotalPage)
	assert.Equal(t, 5, meta.CurrentPage)
}

func TestPaginate_EmptySequenceHasOnePage(t *testing.T) {
	page, meta := Paginate([]int{}, 1, 10)

	assert.Empty(t, page)
	assert.Equal(t, int64(0), meta.Total)
	assert.Equal(t, 1, meta.TotalPage)
}

func TestPaginate_SizesMatchFormula(t *testing.T) {
	for length := 0; length <= 25; length++ {
		for size := 1; size <= 7; size++ {
			for page := 1; page <= 8; page++ {
				got, meta := Paginate(sequence(length), page, size)

				want := min(size, max(0, length-(page-1)*size))
				assert.Len(t, got, want, "L=%d P=%d S=%d", length, page, size)

				wantPages := max(1, (length+size-1)/size)
				assert.Equal(t, wantPages, meta.TotalPage, "L=%d S=%d", length, size)
			}
		}
	}
}

func TestPaginate_DefaultsForNonPositiveInput(t *testing.T) {
	_, meta := Paginate(sequence(3), 0, 0)

	assert.Equal(t, DefaultPage, meta.CurrentPage)
	assert.Equal(t, DefaultPageSize, meta.PerPage)
}
