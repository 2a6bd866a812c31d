package listsync

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Wire names of the list query parameters.
const (
	ParamPageNumber = "pageNumber"
	ParamRowCount   = "rowCount"
	ParamSortBy     = "sortBy"
	ParamOrderType  = "orderType"
)

// Filters maps a filter name to its value. A missing key or a nil value is
// absent and is not sent.
type Filters map[string]any

// Clone returns a copy that shares no slices with f.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for k, v := range f {
		if ss, ok := v.([]string); ok {
			v = append([]string(nil), ss...)
		}
		out[k] = v
	}
	return out
}

// Query is the state of one list view.
type Query struct {
	Filters   Filters
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Clone deep-copies q.
func (q Query) Clone() Query {
	q.Filters = q.Filters.Clone()
	return q
}

// Values serializes q into URL query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set(ParamPageNumber, strconv.Itoa(q.Page))
	v.Set(ParamRowCount, strconv.Itoa(q.PageSize))
	if q.SortBy != "" {
		v.Set(ParamSortBy, q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set(ParamOrderType, q.SortOrder)
	}

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := encodeFilter(q.Filters[k]); ok {
			v.Set(k, s)
		}
	}
	return v
}

func encodeFilter(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	case *string:
		if x == nil || *x == "" {
			return "", false
		}
		return *x, true
	case bool:
		return strconv.FormatBool(x), true
	case *bool:
		if x == nil {
			return "", false
		}
		return strconv.FormatBool(*x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case []string:
		if len(x) == 0 {
			return "", false
		}
		return strings.Join(x, ","), true
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		return x.Format(time.DateOnly), true
	case fmt.Stringer:
		s := x.String()
		return s, s != ""
	default:
		return fmt.Sprint(x), true
	}
}
