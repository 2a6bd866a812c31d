package listsync

import "github.com/and161185/admin-console/internal/pagination"

// Status is the tag of FetchState.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText renders the status name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// FetchState is assigned by the controller only. Items and Page are set for
// StatusSucceeded, Err for StatusFailed.
type FetchState[T any] struct {
	Status Status
	Items  []T
	Page   pagination.Page
	Err    error
}

// View is what a list screen renders. Items are those of the last successful
// fetch and stay visible while a newer one is loading.
type View[T any] struct {
	Items      []T    `json:"items"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
	Status     Status `json:"status"`
	Err        error  `json:"-"`
	Query      Query  `json:"query"`
}
