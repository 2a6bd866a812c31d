package listsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryValues(t *testing.T) {
	t.Parallel()

	name := "kim"
	yes := true
	q := Query{
		Filters: Filters{
			"searchText":       "go",
			"name":             &name,
			"email":            "",
			"forAdult":         &yes,
			"forChild":         (*bool)(nil),
			"deleted":          false,
			"locationTypeList": []string{"ONLINE", "OFFLINE"},
			"fromDueDate":      time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC),
			"toDueDate":        time.Time{},
			"academyId":        int64(12),
			"unset":            nil,
		},
		SortBy:    "dueDate",
		SortOrder: "DESC",
		Page:      2,
		PageSize:  5,
	}

	v := q.Values()
	require.Equal(t, "2", v.Get(ParamPageNumber))
	require.Equal(t, "5", v.Get(ParamRowCount))
	require.Equal(t, "dueDate", v.Get(ParamSortBy))
	require.Equal(t, "DESC", v.Get(ParamOrderType))
	require.Equal(t, "go", v.Get("searchText"))
	require.Equal(t, "kim", v.Get("name"))
	require.Equal(t, "true", v.Get("forAdult"))
	require.Equal(t, "false", v.Get("deleted"))
	require.Equal(t, "ONLINE,OFFLINE", v.Get("locationTypeList"))
	require.Equal(t, "2026-03-01", v.Get("fromDueDate"))
	require.Equal(t, "12", v.Get("academyId"))
	for _, k := range []string{"email", "forChild", "toDueDate", "unset"} {
		require.False(t, v.Has(k), k)
	}
}

func TestQueryValuesOmitsEmptySort(t *testing.T) {
	t.Parallel()
	v := Query{PageSize: 10}.Values()
	require.False(t, v.Has(ParamSortBy))
	require.False(t, v.Has(ParamOrderType))
	require.Equal(t, "0", v.Get(ParamPageNumber))
}

func TestQueryCloneIsIndependent(t *testing.T) {
	t.Parallel()
	q := Query{Filters: Filters{"list": []string{"a"}, "s": "x"}}
	c := q.Clone()
	c.Filters["s"] = "y"
	c.Filters["list"].([]string)[0] = "b"
	require.Equal(t, "x", q.Filters["s"])
	require.Equal(t, []string{"a"}, q.Filters["list"])

	require.Nil(t, Filters(nil).Clone())
}

func TestStatusString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "idle", StatusIdle.String())
	require.Equal(t, "loading", StatusLoading.String())
	require.Equal(t, "succeeded", StatusSucceeded.String())
	require.Equal(t, "failed", StatusFailed.String())
}
