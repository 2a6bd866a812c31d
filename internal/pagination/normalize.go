// Package pagination turns the two pagination encodings returned by the API
// into a single {current, total} page model.
//
// Shape "totals" carries totalElements and size. Shape "slice" only carries
// first/last flags, the page number and the element count of the page; its
// total is inferred and can be wrong for pages strictly between the first and
// the last one.
package pagination

import (
	"fmt"
	"math"

	"github.com/and161185/admin-console/internal/errs"
)

// Shape identifies the encoding of Meta.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeTotals
	ShapeSlice
)

func (s Shape) String() string {
	switch s {
	case ShapeTotals:
		return "totals"
	case ShapeSlice:
		return "slice"
	default:
		return "unknown"
	}
}

// Pageable mirrors the server's request echo.
type Pageable struct {
	PageNumber int  `json:"pageNumber"`
	PageSize   int  `json:"pageSize"`
	Offset     int  `json:"offset"`
	Paged      bool `json:"paged"`
	Unpaged    bool `json:"unpaged"`
}

// Meta is the raw pagination descriptor. Pointer fields distinguish absent
// from zero.
type Meta struct {
	TotalElements    *int64    `json:"totalElements,omitempty"`
	TotalPages       *int      `json:"totalPages,omitempty"`
	Size             *int      `json:"size,omitempty"`
	Number           *int      `json:"number,omitempty"`
	NumberOfElements *int      `json:"numberOfElements,omitempty"`
	First            *bool     `json:"first,omitempty"`
	Last             *bool     `json:"last,omitempty"`
	Empty            *bool     `json:"empty,omitempty"`
	Pageable         *Pageable `json:"pageable,omitempty"`
}

// Page is the canonical position. Total is 0 when nothing is known.
type Page struct {
	Current int
	Total   int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Current > 0 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Current < p.Total-1 }

// DetectShape classifies m.
func DetectShape(m Meta) Shape {
	if m.TotalElements != nil && m.Size != nil {
		return ShapeTotals
	}
	if m.First != nil || m.Last != nil {
		return ShapeSlice
	}
	return ShapeUnknown
}

// Normalize computes the page model from m. prevTotal is the last known
// total; it is kept whenever m does not allow a better answer. A non-nil
// error wraps errs.ErrMalformedMetadata and is a warning: the returned Page is
// still usable.
func Normalize(prevTotal int, m Meta) (Page, error) {
	if prevTotal < 0 {
		prevTotal = 0
	}
	p := Page{Current: currentOf(m), Total: prevTotal}

	switch DetectShape(m) {
	case ShapeTotals:
		size, total := *m.Size, *m.TotalElements
		if size <= 0 || total < 0 {
			return p, fmt.Errorf("totals shape size=%d totalElements=%d: %w", size, total, errs.ErrMalformedMetadata)
		}
		pages := ceilDiv(total, int64(size))
		if pages > math.MaxInt32 {
			return p, fmt.Errorf("totals shape totalElements=%d out of range: %w", total, errs.ErrMalformedMetadata)
		}
		p.Total = int(pages)
		return clampCurrent(p)

	case ShapeSlice:
		first, last := deref(m.First), deref(m.Last)
		n := 0
		if m.NumberOfElements != nil {
			n = *m.NumberOfElements
		}
		badSize := m.Size != nil && *m.Size <= 0
		switch {
		case first && n > 0:
			if m.Size == nil || badSize {
				return p, fmt.Errorf("slice shape without usable size: %w", errs.ErrMalformedMetadata)
			}
			p.Total = int(ceilDiv(int64(n), int64(*m.Size)))
			if p.Total < 1 {
				p.Total = 1
			}
		case last:
			p.Total = p.Current + 1
		default:
			// keep prevTotal; the reported page still has to fit
			if p.Current >= p.Total {
				p.Total = p.Current + 1
			}
		}
		if badSize {
			return p, fmt.Errorf("slice shape size=%d: %w", *m.Size, errs.ErrMalformedMetadata)
		}
		return p, nil

	default:
		return p, fmt.Errorf("no recognizable pagination fields: %w", errs.ErrMalformedMetadata)
	}
}

// HasPosition reports whether m says which page it describes.
func (m Meta) HasPosition() bool { return m.Number != nil || m.Pageable != nil }

func currentOf(m Meta) int {
	switch {
	case m.Number != nil && *m.Number >= 0:
		return *m.Number
	case m.Pageable != nil && m.Pageable.PageNumber >= 0:
		return m.Pageable.PageNumber
	default:
		return 0
	}
}

// clampCurrent pulls a reported page that lies past the total back onto the
// last page, or onto page 0 when the result is empty.
func clampCurrent(p Page) (Page, error) {
	if p.Current < p.Total || (p.Total == 0 && p.Current == 0) {
		return p, nil
	}
	reported := p.Current
	p.Current = max(p.Total-1, 0)
	return p, fmt.Errorf("page %d past total %d: %w", reported, p.Total, errs.ErrMalformedMetadata)
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

func deref(b *bool) bool { return b != nil && *b }
