// Package pagination computes page windows over ordered result sets.
package pagination

import (
	"errors"
	"fmt"
	"math"
)

// DefaultPageSize is used by listings that do not take a page size from the caller.
const DefaultPageSize = 20

// ErrInvalidArgument is returned for a page or page size below 1, a negative
// total, or a page whose offset does not fit in an int.
var ErrInvalidArgument = errors.New("invalid pagination argument")

// MetaData describes one page of an ordered result set. Min and Max are
// 1-based inclusive bounds of the page within the whole set.
type MetaData struct {
	Min          int  `json:"min"`
	Max          int  `json:"max"`
	Page         int  `json:"page"`
	TotalCount   int  `json:"total_count"`
	TotalPages   int  `json:"total_pages"`
	PreviousPage *int `json:"previous_page"`
	NextPage     *int `json:"next_page"`
}

// Page pairs the items of a single page with its metadata.
type Page[T any] struct {
	Items    []T      `json:"items"`
	MetaData MetaData `json:"meta_data"`
}

// OffsetAndLimitForPage returns the offset/limit pair for a DB-side page query.
func OffsetAndLimitForPage(page, pageSize int) (int, int, error) {
	if err := check(page, pageSize); err != nil {
		return 0, 0, err
	}
	return (page - 1) * pageSize, pageSize, nil
}

// MetaDataForPage computes the metadata of page within totalCount items.
func MetaDataForPage(page, totalCount, pageSize int) (MetaData, error) {
	if err := check(page, pageSize); err != nil {
		return MetaData{}, err
	}
	if totalCount < 0 {
		return MetaData{}, fmt.Errorf("%w: total count %d", ErrInvalidArgument, totalCount)
	}

	md := MetaData{Page: page, TotalCount: totalCount}
	if totalCount == 0 {
		return md, nil
	}

	md.TotalPages = totalCount / pageSize
	if totalCount%pageSize != 0 {
		md.TotalPages++
	}
	// A page past the end is an empty window rather than min > max.
	if page <= md.TotalPages {
		md.Min = (page-1)*pageSize + 1
		md.Max = min(totalCount, page*pageSize)
	}
	if page > 1 {
		prev := page - 1
		md.PreviousPage = &prev
	}
	if page < md.TotalPages {
		next := page + 1
		md.NextPage = &next
	}
	return md, nil
}

// Slice pages an already fetched, ordered list in memory.
func Slice[T any](page int, items []T, pageSize int) (Page[T], error) {
	md, err := MetaDataForPage(page, len(items), pageSize)
	if err != nil {
		return Page[T]{}, err
	}
	out := Page[T]{Items: []T{}, MetaData: md}
	if md.Min == 0 {
		return out, nil
	}
	out.Items = items[md.Min-1 : md.Max]
	return out, nil
}

func check(page, pageSize int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be at least 1, got %d", ErrInvalidArgument, page)
	}
	if pageSize < 1 {
		return fmt.Errorf("%w: page size must be at least 1, got %d", ErrInvalidArgument, pageSize)
	}
	if page > math.MaxInt/pageSize {
		return fmt.Errorf("%w: page %d out of range", ErrInvalidArgument, page)
	}
	return nil
}
