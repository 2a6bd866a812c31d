package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/listsync"
	"github.com/and161185/admin-console/internal/model"
	"github.com/and161185/admin-console/internal/transport"
)

// List endpoints.
const (
	UsersPath    = "/api/v1/users"
	JobPostsPath = "/api/v1/job-posts"
)

// UsersResource is the users list: ten rows, server-side default order.
var UsersResource = listsync.Resource{
	Name:            "users",
	Path:            UsersPath,
	DefaultPageSize: 10,
}

// JobPostsResource is the job postings list: five rows, latest due date first.
var JobPostsResource = listsync.Resource{
	Name:             "job-posts",
	Path:             JobPostsPath,
	DefaultSortBy:    "dueDate",
	DefaultSortOrder: "DESC",
	DefaultPageSize:  5,
}

// UserFilters narrows the users list. Deleted is sent whenever it is set,
// including false.
type UserFilters struct {
	Email    string
	Name     string
	RoleType model.RoleType
	Deleted  *bool
}

// Filters converts f for the controller.
func (f UserFilters) Filters() listsync.Filters {
	out := listsync.Filters{}
	if f.Email != "" {
		out["email"] = f.Email
	}
	if f.Name != "" {
		out["name"] = f.Name
	}
	if f.RoleType != "" {
		out["roleType"] = string(f.RoleType)
	}
	if f.Deleted != nil {
		out["deleted"] = *f.Deleted
	}
	return out
}

// JobFilters narrows the job postings list. Audience flags are sent only
// when true.
type JobFilters struct {
	SearchText      string
	LocationTypes   []string
	ForKindergarten bool
	ForElementary   bool
	ForMiddleSchool bool
	ForHighSchool   bool
	ForAdult        bool
	FromDueDate     time.Time
	ToDueDate       time.Time
}

// Filters converts f for the controller.
func (f JobFilters) Filters() listsync.Filters {
	out := listsync.Filters{}
	if f.SearchText != "" {
		out["searchText"] = f.SearchText
	}
	if len(f.LocationTypes) > 0 {
		out["locationTypeList"] = append([]string(nil), f.LocationTypes...)
	}
	flags := []struct {
		key string
		on  bool
	}{
		{"forKindergarten", f.ForKindergarten},
		{"forElementary", f.ForElementary},
		{"forMiddleSchool", f.ForMiddleSchool},
		{"forHighSchool", f.ForHighSchool},
		{"forAdult", f.ForAdult},
	}
	for _, fl := range flags {
		if fl.on {
			out[fl.key] = true
		}
	}
	if !f.FromDueDate.IsZero() {
		out["fromDueDate"] = f.FromDueDate
	}
	if !f.ToDueDate.IsZero() {
		out["toDueDate"] = f.ToDueDate
	}
	return out
}

// Records fetches single records by id.
type Records struct {
	api         API
	successCode string
}

// NewRecords constructs Records.
func NewRecords(api API) *Records {
	return &Records{api: api, successCode: model.CodeSuccess}
}

// GetUser returns one user. A 404 is reported as errs.ErrNotFound.
func (r *Records) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := r.get(ctx, UsersPath, id, &u); err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return &u, nil
}

// GetJobPost returns one job posting. A 404 is reported as errs.ErrNotFound.
func (r *Records) GetJobPost(ctx context.Context, id int64) (*model.JobPost, error) {
	var jp model.JobPost
	if err := r.get(ctx, JobPostsPath, id, &jp); err != nil {
		return nil, fmt.Errorf("job post %d: %w", id, err)
	}
	return &jp, nil
}

func (r *Records) get(ctx context.Context, base string, id int64, out any) error {
	if id <= 0 {
		return errors.New("validation: id must be positive")
	}
	resp, err := r.api.Send(ctx, http.MethodGet, base+"/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		var se *errs.ServerError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return errs.ErrNotFound
		}
		return err
	}
	return transport.DecodeEnvelope(resp, r.successCode, out)
}
