package client

import "context"

// WorkExperience mirrors the API payload for a work-experience entry.
type WorkExperience struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	Duration     string   `json:"duration"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements"`
	Technologies []string `json:"technologies"`
	Order        int      `json:"order"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func (w WorkExperience) ItemID() string { return w.ID }
func (w WorkExperience) ItemOrder() int { return w.Order }

// Education mirrors the API payload for an education entry.
type Education struct {
	ID           string   `json:"id"`
	Degree       string   `json:"degree"`
	Field        string   `json:"field"`
	Institution  string   `json:"institution"`
	Location     string   `json:"location"`
	Duration     string   `json:"duration"`
	Description  string   `json:"description"`
	GPA          string   `json:"gpa"`
	Coursework   []string `json:"coursework"`
	Achievements []string `json:"achievements"`
	Order        int      `json:"order"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func (e Education) ItemID() string { return e.ID }
func (e Education) ItemOrder() int { return e.Order }

// Project mirrors the API payload for a project entry.
type Project struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Duration     string   `json:"duration"`
	Technologies []string `json:"technologies"`
	GithubURL    string   `json:"githubUrl"`
	LiveURL      string   `json:"liveUrl"`
	Highlights   []string `json:"highlights"`
	Order        int      `json:"order"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func (p Project) ItemID() string { return p.ID }
func (p Project) ItemOrder() int { return p.Order }

// Testimonial mirrors the API payload for a testimonial.
type Testimonial struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	Company         string `json:"company"`
	Content         string `json:"content"`
	Avatar          string `json:"avatar"`
	ProofURL        string `json:"proofUrl"`
	IsApproved      bool   `json:"isApproved"`
	IsUserSubmitted bool   `json:"isUserSubmitted"`
	Order           int    `json:"order"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func (t Testimonial) ItemID() string { return t.ID }
func (t Testimonial) ItemOrder() int { return t.Order }

// NewWorkExperiences returns a collection bound to /api/work-experience.
func NewWorkExperiences(c *Client) *Collection[WorkExperience] {
	return newCollection[WorkExperience](c, "/api/work-experience")
}

// NewEducation returns a collection bound to /api/education.
func NewEducation(c *Client) *Collection[Education] {
	return newCollection[Education](c, "/api/education")
}

// NewProjects returns a collection bound to /api/projects.
func NewProjects(c *Client) *Collection[Project] {
	return newCollection[Project](c, "/api/projects")
}

// Testimonials wraps the testimonial collection with moderation calls.
type Testimonials struct {
	*Collection[Testimonial]
}

// NewTestimonials returns the public testimonial collection. Pass
// includeUnapproved to fetch pending entries as a moderator.
func NewTestimonials(c *Client, includeUnapproved bool) *Testimonials {
	col := newCollection[Testimonial](c, "/api/testimonials")
	if includeUnapproved {
		col.listQuery = "?includeUnapproved=true"
	}
	return &Testimonials{Collection: col}
}

// Approve marks a pending testimonial as approved and syncs the local list.
func (t *Testimonials) Approve(ctx context.Context, id string) (Testimonial, error) {
	return t.moderate(ctx, id, "approve")
}

// Reject clears a testimonial's approval and syncs the local list.
func (t *Testimonials) Reject(ctx context.Context, id string) (Testimonial, error) {
	return t.moderate(ctx, id, "reject")
}

func (t *Testimonials) moderate(ctx context.Context, id, action string) (Testimonial, error) {
	var out Testimonial
	err := t.client.do(ctx, "PATCH", t.path+"/"+id+"?action="+action, nil, &out)
	if err != nil {
		return Testimonial{}, err
	}
	t.replaceLocal(out)
	return out, nil
}
