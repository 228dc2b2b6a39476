package export

import (
	"context"
	"fmt"
	"time"
)

// DataStore defines the interface for data access
type DataStore interface {
	ListExperience(ctx context.Context) ([]ExperienceInfo, error)
	ListEducation(ctx context.Context) ([]EducationInfo, error)
	ListProjects(ctx context.Context) ([]ProjectInfo, error)
	ListApprovedTestimonials(ctx context.Context) ([]TestimonialInfo, error)
}

// ProfileInfo identifies the résumé owner
type ProfileInfo struct {
	Name  string
	Title string
	Email string
}

// ExperienceInfo holds a work experience entry for rendering
type ExperienceInfo struct {
	Title        string
	Company      string
	Location     string
	Duration     string
	Description  string
	Technologies []string
	Achievements []string
}

// EducationInfo holds an education entry for rendering
type EducationInfo struct {
	Degree      string
	Field       string
	Institution string
	Location    string
	Duration    string
	Description string
	GPA         string
}

// ProjectInfo holds a project entry for rendering
type ProjectInfo struct {
	Title        string
	Description  string
	Duration     string
	GithubURL    string
	LiveURL      string
	Technologies []string
	Highlights   []string
}

// TestimonialInfo holds an approved testimonial for rendering
type TestimonialInfo struct {
	Name    string
	Role    string
	Company string
	Content string
}

// Service provides résumé export functionality
type Service struct {
	store DataStore
	owner ProfileInfo
}

// NewService creates a new export service
func NewService(store DataStore, owner ProfileInfo) *Service {
	return &Service{store: store, owner: owner}
}

// Export generates a résumé in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	experiences, err := s.store.ListExperience(ctx)
	if err != nil {
		return nil, fmt.Errorf("list experience: %w", err)
	}

	educations, err := s.store.ListEducation(ctx)
	if err != nil {
		return nil, fmt.Errorf("list education: %w", err)
	}

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	data := TemplateData{
		Owner:       s.owner,
		Experiences: experiences,
		Educations:  educations,
		Projects:    projects,
		GeneratedAt: time.Now(),
	}

	if req.IncludeTestimonials {
		testimonials, err := s.store.ListApprovedTestimonials(ctx)
		if err != nil {
			return nil, fmt.Errorf("list testimonials: %w", err)
		}
		data.Testimonials = testimonials
	}

	html, err := RenderResumeHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	filename := s.owner.Name
	if filename == "" {
		filename = "resume"
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(html, filename)
	case FormatDOCX:
		return exportDOCX(html, filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
