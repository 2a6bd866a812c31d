// Package model defines domain entities shared by the console, its services and the API double.
package model

import (
	"encoding/json"
	"time"
)

// CodeSuccess is the envelope code the API uses for application-level success.
const CodeSuccess = "CM-001"

// Session is the operator's access credential and its absolute expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// ValidAt reports whether the session is usable at the given instant.
func (s Session) ValidAt(now time.Time) bool {
	return s.Token != "" && !s.ExpiresAt.IsZero() && now.Before(s.ExpiresAt)
}

// Envelope wraps every API response.
type Envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Credentials is the sign-in request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthData is the sign-in response payload. AccessTokenExpireTime is relative, in milliseconds.
type AuthData struct {
	AccessToken           string `json:"accessToken"`
	AccessTokenExpireTime int64  `json:"accessTokenExpireTime"`
}

// RoleType classifies console users.
type RoleType string

const (
	RoleAcademy RoleType = "ACADEMY"
	RoleAdmin   RoleType = "ADMIN"
	RoleTeacher RoleType = "TEACHER"
)

// User is a record of the users list.
type User struct {
	ID        int64    `json:"id"`
	FirstName *string  `json:"firstName"`
	LastName  *string  `json:"lastName"`
	Email     string   `json:"email"`
	RoleType  RoleType `json:"roleType"`
	Deleted   bool     `json:"deleted"`
}

// JobPost is a record of the job postings list.
type JobPost struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	DueDate         string    `json:"dueDate"`
	AcademyID       int64     `json:"academyId"`
	AcademyName     string    `json:"academyName"`
	LocationType    string    `json:"locationType"`
	ForKindergarten bool      `json:"forKindergarten"`
	ForElementary   bool      `json:"forElementary"`
	ForMiddleSchool bool      `json:"forMiddleSchool"`
	ForHighSchool   bool      `json:"forHighSchool"`
	ForAdult        bool      `json:"forAdult"`
	ImageURLs       []string  `json:"imageUrls"`
	CreatedAt       time.Time `json:"createdAt"`
}
