package repository

import "math"

// Page is one page of an ordered result set.
type Page[T any] struct {
	Items   []T
	Page    int
	PerPage int
	Total   int64
}

// Pages is the total number of pages, at least zero.
func (p Page[T]) Pages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }

func (p Page[T]) HasNext() bool { return p.Page < p.Pages() }

func (p Page[T]) PrevNum() int { return p.Page - 1 }

func (p Page[T]) NextNum() int { return p.Page + 1 }

// IterPages lists page numbers for a pager, with 0 standing for a gap.
// It keeps one page at each edge, two before the current page and four after it.
func (p Page[T]) IterPages() []int {
	return iterPages(p.Page, p.Pages(), 1, 2, 5, 1)
}

func iterPages(current, pages, leftEdge, leftCurrent, rightCurrent, rightEdge int) []int {
	var out []int
	last := 0
	for num := 1; num <= pages; num++ {
		if num <= leftEdge ||
			(num > current-leftCurrent-1 && num < current+rightCurrent) ||
			num > pages-rightEdge {
			if last+1 != num {
				out = append(out, 0)
			}
			out = append(out, num)
			last = num
		}
	}
	return out
}

// offset returns the row offset for a 1-based page, saturating at math.MaxInt.
func offset(page, perPage int) int {
	if page < 1 || perPage < 1 {
		return 0
	}
	if page-1 > math.MaxInt/perPage {
		return math.MaxInt
	}
	return (page - 1) * perPage
}

// pastEnd reports whether page starts after the last of total rows.
func pastEnd(page, perPage int, total int64) bool {
	if page <= 1 || perPage < 1 {
		return false
	}
	return int64(page-1) >= (total+int64(perPage)-1)/int64(perPage)
}
