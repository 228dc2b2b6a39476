package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultExperience  ResultType = "experience"
	ResultEducation   ResultType = "education"
	ResultProject     ResultType = "project"
	ResultTestimonial ResultType = "testimonial"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	Approved bool       `json:"approved,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
	// IncludeUnapproved widens testimonial hits to pending submissions.
	// Only moderators get this; public queries never see unapproved content.
	IncludeUnapproved bool
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexExperience(r ExperienceRecord) error
	IndexEducation(r EducationRecord) error
	IndexProject(r ProjectRecord) error
	IndexTestimonial(r TestimonialRecord) error
	Delete(t ResultType, id string) error
}

// ExperienceRecord is the data we index for a work experience entry.
type ExperienceRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

// EducationRecord is the data we index for an education entry.
type EducationRecord struct {
	ID          string `json:"id"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	Institution string `json:"institution"`
	Description string `json:"description"`
}

// ProjectRecord is the data we index for a project.
type ProjectRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TestimonialRecord is the data we index for a testimonial.
type TestimonialRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Company  string `json:"company"`
	Content  string `json:"content"`
	Approved bool   `json:"approved"`
}
