package devapi

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/model"
)

// UserQuery filters the users list.
type UserQuery struct {
	Email    string
	Name     string
	RoleType string
	Deleted  *bool
}

// JobQuery filters the job postings list.
type JobQuery struct {
	SearchText    string
	LocationTypes []string
	Audience      []string // JSON names of flags that must be true
	FromDueDate   string
	ToDueDate     string
}

// Sort is a field and direction.
type Sort struct {
	By   string
	Desc bool
}

// Store holds the records served by the API double.
type Store struct {
	mu    sync.RWMutex
	users []model.User
	jobs  []model.JobPost
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// AddUser appends u and assigns its ID.
func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = int64(len(s.users) + 1)
	s.users = append(s.users, u)
	return u
}

// AddJobPost appends jp and assigns its ID.
func (s *Store) AddJobPost(jp model.JobPost) model.JobPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	jp.ID = int64(len(s.jobs) + 1)
	s.jobs = append(s.jobs, jp)
	return jp
}

// GetUser returns one user or errs.ErrNotFound.
func (s *Store) GetUser(id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, errs.ErrNotFound
}

// GetJobPost returns one job posting or errs.ErrNotFound.
func (s *Store) GetJobPost(id int64) (model.JobPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, jp := range s.jobs {
		if jp.ID == id {
			return jp, nil
		}
	}
	return model.JobPost{}, errs.ErrNotFound
}

// Users returns every user matching q, ordered by srt.
func (s *Store) Users(q UserQuery, srt Sort) []model.User {
	s.mu.RLock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		if matchUser(u, q) {
			out = append(out, u)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.User) int {
		var c int
		switch srt.By {
		case "email":
			c = strings.Compare(a.Email, b.Email)
		case "roleType":
			c = strings.Compare(string(a.RoleType), string(b.RoleType))
		case "name":
			c = strings.Compare(fullName(a), fullName(b))
		default:
			c = cmp.Compare(a.ID, b.ID)
		}
		if srt.Desc {
			c = -c
		}
		return c
	})
	return out
}

// JobPosts returns every job posting matching q, ordered by srt.
func (s *Store) JobPosts(q JobQuery, srt Sort) []model.JobPost {
	s.mu.RLock()
	out := make([]model.JobPost, 0, len(s.jobs))
	for _, jp := range s.jobs {
		if matchJob(jp, q) {
			out = append(out, jp)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.JobPost) int {
		var c int
		switch srt.By {
		case "dueDate":
			c = strings.Compare(a.DueDate, b.DueDate)
		case "title":
			c = strings.Compare(a.Title, b.Title)
		case "createdAt":
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = cmp.Compare(a.ID, b.ID)
		}
		if srt.Desc {
			c = -c
		}
		return c
	})
	return out
}

func fullName(u model.User) string {
	var parts []string
	if u.FirstName != nil {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil {
		parts = append(parts, *u.LastName)
	}
	return strings.Join(parts, " ")
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func matchUser(u model.User, q UserQuery) bool {
	if q.Email != "" && !containsFold(u.Email, q.Email) {
		return false
	}
	if q.Name != "" && !containsFold(fullName(u), q.Name) {
		return false
	}
	if q.RoleType != "" && string(u.RoleType) != q.RoleType {
		return false
	}
	if q.Deleted != nil && u.Deleted != *q.Deleted {
		return false
	}
	return true
}

func audience(jp model.JobPost, name string) bool {
	switch name {
	case "forKindergarten":
		return jp.ForKindergarten
	case "forElementary":
		return jp.ForElementary
	case "forMiddleSchool":
		return jp.ForMiddleSchool
	case "forHighSchool":
		return jp.ForHighSchool
	case "forAdult":
		return jp.ForAdult
	}
	return false
}

func matchJob(jp model.JobPost, q JobQuery) bool {
	if q.SearchText != "" && !containsFold(jp.Title, q.SearchText) && !containsFold(jp.AcademyName, q.SearchText) {
		return false
	}
	if len(q.LocationTypes) > 0 && !slices.Contains(q.LocationTypes, jp.LocationType) {
		return false
	}
	for _, a := range q.Audience {
		if !audience(jp, a) {
			return false
		}
	}
	if q.FromDueDate != "" && jp.DueDate < q.FromDueDate {
		return false
	}
	if q.ToDueDate != "" && jp.DueDate > q.ToDueDate {
		return false
	}
	return true
}

// Seed fills s with users and job postings whose content depends only on
// the counts.
func Seed(s *Store, users, jobs int) {
	first := []string{"Minji", "Jisoo", "Hana", "Seojun", "Yuna", "Doyun", "Eunwoo"}
	last := []string{"Kim", "Lee", "Park", "Choi", "Jung"}
	roles := []model.RoleType{model.RoleAdmin, model.RoleAcademy, model.RoleTeacher}
	for i := 0; i < users; i++ {
		fn, ln := first[i%len(first)], last[i%len(last)]
		u := model.User{
			Email:    fmt.Sprintf("user%02d@example.com", i+1),
			RoleType: roles[i%len(roles)],
			Deleted:  i%9 == 8,
		}
		if i%11 != 10 {
			u.FirstName, u.LastName = &fn, &ln
		}
		s.AddUser(u)
	}

	locations := []string{"ONLINE", "OFFLINE", "HYBRID"}
	subjects := []string{"Math", "English", "Piano", "Coding", "Art", "Science"}
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < jobs; i++ {
		s.AddJobPost(model.JobPost{
			Title:           fmt.Sprintf("%s teacher #%d", subjects[i%len(subjects)], i+1),
			DueDate:         base.AddDate(0, 0, 3*i).Format(time.DateOnly),
			AcademyID:       int64(i%4 + 1),
			AcademyName:     fmt.Sprintf("Academy %c", 'A'+rune(i%4)),
			LocationType:    locations[i%len(locations)],
			ForKindergarten: i%5 == 0,
			ForElementary:   i%2 == 0,
			ForMiddleSchool: i%3 == 0,
			ForHighSchool:   i%4 == 0,
			ForAdult:        i%3 == 2,
			ImageURLs:       []string{},
			CreatedAt:       base.Add(time.Duration(i) * time.Hour),
		})
	}
}
