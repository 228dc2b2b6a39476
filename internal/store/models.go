package store

import "time"

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Role                  string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type WorkExperience struct {
	ID           string
	Title        string
	Company      string
	Location     string
	Duration     string
	Description  string
	Technologies []string
	Achievements []string
	SortOrder    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Education struct {
	ID           string
	Degree       string
	Field        string
	Institution  string
	Location     string
	Duration     string
	Description  string
	GPA          string
	Coursework   []string
	Achievements []string
	SortOrder    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Project struct {
	ID           string
	Title        string
	Description  string
	Technologies []string
	Duration     string
	GithubURL    string
	LiveURL      string
	Highlights   []string
	SortOrder    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Testimonial struct {
	ID              string
	Name            string
	Role            string
	Company         string
	Content         string
	Avatar          string
	ProofURL        string
	IsApproved      bool
	IsUserSubmitted bool
	SortOrder       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
