package app

import (
	"context"
	"database/sql"
	"sort"
	"unicode/utf8"

	"portfolio/api/internal/search"
	"portfolio/api/internal/store"
	"portfolio/api/internal/util"
)

// maxTestimonialContent is the rune ceiling on testimonial content,
// enforced on create and update alike.
const maxTestimonialContent = 500

// resourceOps describes one content kind for the shared repository
// algorithm: validate, advisory uniqueness pre-check, build, write,
// re-read, index. The store's unique constraint is the authoritative
// enforcement; keyExists only exists to return a friendly conflict
// before the constraint trips.
type resourceOps[I any, M any] struct {
	label      string
	validate   func(I) error
	keyExists  func(context.Context, I, string) (bool, error)
	keyChanged func(I, M) bool
	build      func(input I, current M, id string) M
	get        func(context.Context, string) (M, error)
	insert     func(context.Context, M) error
	update     func(context.Context, M) error
	payload    func(M) map[string]any
	index      func(M)
}

func createResource[I any, M any](ctx context.Context, ops resourceOps[I, M], input I) (map[string]any, error) {
	if err := ops.validate(input); err != nil {
		return nil, err
	}
	if ops.keyExists != nil {
		exists, err := ops.keyExists(ctx, input, "")
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, conflict("A " + ops.label + " with those details already exists")
		}
	}

	id := util.NewRowID()
	var current M
	item := ops.build(input, current, id)
	if err := ops.insert(ctx, item); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflict("A " + ops.label + " with those details already exists")
		}
		return nil, err
	}

	fresh, err := ops.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ops.index != nil {
		ops.index(fresh)
	}
	return ops.payload(fresh), nil
}

func updateResource[I any, M any](ctx context.Context, ops resourceOps[I, M], id string, input I) (map[string]any, error) {
	if err := ops.validate(input); err != nil {
		return nil, err
	}
	current, err := ops.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ops.keyExists != nil && ops.keyChanged != nil && ops.keyChanged(input, current) {
		exists, err := ops.keyExists(ctx, input, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, conflict("A " + ops.label + " with those details already exists")
		}
	}

	item := ops.build(input, current, id)
	if err := ops.update(ctx, item); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflict("A " + ops.label + " with those details already exists")
		}
		return nil, err
	}

	fresh, err := ops.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ops.index != nil {
		ops.index(fresh)
	}
	return ops.payload(fresh), nil
}

func missingFields(fields map[string]string) []string {
	var missing []string
	for name, value := range fields {
		if value == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func requireFields(fields map[string]string) error {
	if missing := missingFields(fields); len(missing) > 0 {
		return invalidInput("Missing required fields", map[string]any{"fields": missing})
	}
	return nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Work experience

type WorkExperienceInput struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	Duration     string   `json:"duration"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Achievements []string `json:"achievements"`
	Order        int      `json:"order"`
}

func workExperiencePayload(item store.WorkExperience) map[string]any {
	return map[string]any{
		"id":           item.ID,
		"title":        item.Title,
		"company":      item.Company,
		"location":     item.Location,
		"duration":     item.Duration,
		"description":  item.Description,
		"technologies": orEmpty(item.Technologies),
		"achievements": orEmpty(item.Achievements),
		"order":        item.SortOrder,
		"createdAt":    item.CreatedAt,
		"updatedAt":    item.UpdatedAt,
	}
}

func (s *Service) workExperienceOps() resourceOps[WorkExperienceInput, store.WorkExperience] {
	return resourceOps[WorkExperienceInput, store.WorkExperience]{
		label: "work experience entry",
		validate: func(in WorkExperienceInput) error {
			return requireFields(map[string]string{
				"title":       in.Title,
				"company":     in.Company,
				"location":    in.Location,
				"duration":    in.Duration,
				"description": in.Description,
			})
		},
		keyExists: func(ctx context.Context, in WorkExperienceInput, excludeID string) (bool, error) {
			return s.store.WorkExperienceKeyExists(ctx, in.Company, in.Title, excludeID)
		},
		keyChanged: func(in WorkExperienceInput, cur store.WorkExperience) bool {
			return in.Company != cur.Company || in.Title != cur.Title
		},
		build: func(in WorkExperienceInput, _ store.WorkExperience, id string) store.WorkExperience {
			return store.WorkExperience{
				ID:           id,
				Title:        in.Title,
				Company:      in.Company,
				Location:     in.Location,
				Duration:     in.Duration,
				Description:  in.Description,
				Technologies: orEmpty(in.Technologies),
				Achievements: orEmpty(in.Achievements),
				SortOrder:    in.Order,
			}
		},
		get:     s.store.GetWorkExperience,
		insert:  s.store.InsertWorkExperience,
		update:  s.store.UpdateWorkExperience,
		payload: workExperiencePayload,
		index: func(item store.WorkExperience) {
			if s.search == nil {
				return
			}
			s.search.IndexExperience(search.ExperienceRecord{
				ID:          item.ID,
				Title:       item.Title,
				Company:     item.Company,
				Description: item.Description,
			})
		},
	}
}

func (s *Service) ListWorkExperience(ctx context.Context) ([]map[string]any, error) {
	items, err := s.store.ListWorkExperience(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, workExperiencePayload(item))
	}
	return out, nil
}

func (s *Service) GetWorkExperience(ctx context.Context, id string) (map[string]any, error) {
	item, err := s.store.GetWorkExperience(ctx, id)
	if err != nil {
		return nil, err
	}
	return workExperiencePayload(item), nil
}

func (s *Service) CreateWorkExperience(ctx context.Context, input WorkExperienceInput) (map[string]any, error) {
	return createResource(ctx, s.workExperienceOps(), input)
}

func (s *Service) UpdateWorkExperience(ctx context.Context, id string, input WorkExperienceInput) (map[string]any, error) {
	return updateResource(ctx, s.workExperienceOps(), id, input)
}

func (s *Service) DeleteWorkExperience(ctx context.Context, id string) error {
	if err := s.store.DeleteWorkExperience(ctx, id); err != nil {
		return err
	}
	if s.search != nil {
		s.search.Delete(search.ResultExperience, id)
	}
	return nil
}

// Education

type EducationInput struct {
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
}

func educationPayload(item store.Education) map[string]any {
	return map[string]any{
		"id":           item.ID,
		"degree":       item.Degree,
		"field":        item.Field,
		"institution":  item.Institution,
		"location":     item.Location,
		"duration":     item.Duration,
		"description":  item.Description,
		"gpa":          item.GPA,
		"coursework":   orEmpty(item.Coursework),
		"achievements": orEmpty(item.Achievements),
		"order":        item.SortOrder,
		"createdAt":    item.CreatedAt,
		"updatedAt":    item.UpdatedAt,
	}
}

func (s *Service) educationOps() resourceOps[EducationInput, store.Education] {
	return resourceOps[EducationInput, store.Education]{
		label: "education entry",
		validate: func(in EducationInput) error {
			return requireFields(map[string]string{
				"degree":      in.Degree,
				"field":       in.Field,
				"institution": in.Institution,
				"location":    in.Location,
				"duration":    in.Duration,
				"description": in.Description,
			})
		},
		keyExists: func(ctx context.Context, in EducationInput, excludeID string) (bool, error) {
			return s.store.EducationKeyExists(ctx, in.Degree, in.Field, in.Institution, excludeID)
		},
		keyChanged: func(in EducationInput, cur store.Education) bool {
			return in.Degree != cur.Degree || in.Field != cur.Field || in.Institution != cur.Institution
		},
		build: func(in EducationInput, _ store.Education, id string) store.Education {
			return store.Education{
				ID:           id,
				Degree:       in.Degree,
				Field:        in.Field,
				Institution:  in.Institution,
				Location:     in.Location,
				Duration:     in.Duration,
				Description:  in.Description,
				GPA:          in.GPA,
				Coursework:   orEmpty(in.Coursework),
				Achievements: orEmpty(in.Achievements),
				SortOrder:    in.Order,
			}
		},
		get:     s.store.GetEducation,
		insert:  s.store.InsertEducation,
		update:  s.store.UpdateEducation,
		payload: educationPayload,
		index: func(item store.Education) {
			if s.search == nil {
				return
			}
			s.search.IndexEducation(search.EducationRecord{
				ID:          item.ID,
				Degree:      item.Degree,
				Field:       item.Field,
				Institution: item.Institution,
				Description: item.Description,
			})
		},
	}
}

func (s *Service) ListEducation(ctx context.Context) ([]map[string]any, error) {
	items, err := s.store.ListEducation(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, educationPayload(item))
	}
	return out, nil
}

func (s *Service) GetEducation(ctx context.Context, id string) (map[string]any, error) {
	item, err := s.store.GetEducation(ctx, id)
	if err != nil {
		return nil, err
	}
	return educationPayload(item), nil
}

func (s *Service) CreateEducation(ctx context.Context, input EducationInput) (map[string]any, error) {
	return createResource(ctx, s.educationOps(), input)
}

func (s *Service) UpdateEducation(ctx context.Context, id string, input EducationInput) (map[string]any, error) {
	return updateResource(ctx, s.educationOps(), id, input)
}

func (s *Service) DeleteEducation(ctx context.Context, id string) error {
	if err := s.store.DeleteEducation(ctx, id); err != nil {
		return err
	}
	if s.search != nil {
		s.search.Delete(search.ResultEducation, id)
	}
	return nil
}

// Projects

type ProjectInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Duration     string   `json:"duration"`
	GithubURL    string   `json:"githubUrl"`
	LiveURL      string   `json:"liveUrl"`
	Highlights   []string `json:"highlights"`
	Order        int      `json:"order"`
}

func projectPayload(item store.Project) map[string]any {
	return map[string]any{
		"id":           item.ID,
		"title":        item.Title,
		"description":  item.Description,
		"technologies": orEmpty(item.Technologies),
		"duration":     item.Duration,
		"githubUrl":    item.GithubURL,
		"liveUrl":      item.LiveURL,
		"highlights":   orEmpty(item.Highlights),
		"order":        item.SortOrder,
		"createdAt":    item.CreatedAt,
		"updatedAt":    item.UpdatedAt,
	}
}

func (s *Service) projectOps() resourceOps[ProjectInput, store.Project] {
	return resourceOps[ProjectInput, store.Project]{
		label: "project",
		validate: func(in ProjectInput) error {
			return requireFields(map[string]string{
				"title":       in.Title,
				"description": in.Description,
				"duration":    in.Duration,
			})
		},
		keyExists: func(ctx context.Context, in ProjectInput, excludeID string) (bool, error) {
			return s.store.ProjectKeyExists(ctx, in.Title, excludeID)
		},
		keyChanged: func(in ProjectInput, cur store.Project) bool {
			return in.Title != cur.Title
		},
		build: func(in ProjectInput, _ store.Project, id string) store.Project {
			return store.Project{
				ID:           id,
				Title:        in.Title,
				Description:  in.Description,
				Technologies: orEmpty(in.Technologies),
				Duration:     in.Duration,
				GithubURL:    in.GithubURL,
				LiveURL:      in.LiveURL,
				Highlights:   orEmpty(in.Highlights),
				SortOrder:    in.Order,
			}
		},
		get:     s.store.GetProject,
		insert:  s.store.InsertProject,
		update:  s.store.UpdateProject,
		payload: projectPayload,
		index: func(item store.Project) {
			if s.search == nil {
				return
			}
			s.search.IndexProject(search.ProjectRecord{
				ID:          item.ID,
				Title:       item.Title,
				Description: item.Description,
			})
		},
	}
}

func (s *Service) ListProjects(ctx context.Context) ([]map[string]any, error) {
	items, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, projectPayload(item))
	}
	return out, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (map[string]any, error) {
	item, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return projectPayload(item), nil
}

func (s *Service) CreateProject(ctx context.Context, input ProjectInput) (map[string]any, error) {
	return createResource(ctx, s.projectOps(), input)
}

func (s *Service) UpdateProject(ctx context.Context, id string, input ProjectInput) (map[string]any, error) {
	return updateResource(ctx, s.projectOps(), id, input)
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	if s.search != nil {
		s.search.Delete(search.ResultProject, id)
	}
	return nil
}

// Testimonials

type TestimonialInput struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	Content  string `json:"content"`
	Avatar   string `json:"avatar"`
	ProofURL string `json:"proofUrl"`
	// IsUserSubmitted defaults to true; only an admin may set it false
	// to create a pre-approved entry.
	IsUserSubmitted *bool `json:"isUserSubmitted"`
	// IsApproved is only honored on admin full updates; creates decide
	// it server-side.
	IsApproved *bool `json:"isApproved"`
	Order      int   `json:"order"`
}

func testimonialPayload(item store.Testimonial) map[string]any {
	return map[string]any{
		"id":              item.ID,
		"name":            item.Name,
		"role":            item.Role,
		"company":         item.Company,
		"content":         item.Content,
		"avatar":          item.Avatar,
		"proofUrl":        item.ProofURL,
		"isApproved":      item.IsApproved,
		"isUserSubmitted": item.IsUserSubmitted,
		"order":           item.SortOrder,
		"createdAt":       item.CreatedAt,
		"updatedAt":       item.UpdatedAt,
	}
}

func validateTestimonialInput(in TestimonialInput) error {
	if err := requireFields(map[string]string{
		"name":    in.Name,
		"role":    in.Role,
		"company": in.Company,
		"content": in.Content,
	}); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Content) > maxTestimonialContent {
		return invalidInput("content must be at most 500 characters", nil)
	}
	return nil
}

func (s *Service) indexTestimonial(item store.Testimonial) {
	if s.search == nil {
		return
	}
	s.search.IndexTestimonial(search.TestimonialRecord{
		ID:       item.ID,
		Name:     item.Name,
		Company:  item.Company,
		Content:  item.Content,
		Approved: item.IsApproved,
	})
}

// testimonialOps covers the admin full update path; creation goes through
// CreateTestimonial so the moderation state machine can pick the flags.
func (s *Service) testimonialOps() resourceOps[TestimonialInput, store.Testimonial] {
	return resourceOps[TestimonialInput, store.Testimonial]{
		label:    "testimonial",
		validate: validateTestimonialInput,
		build: func(in TestimonialInput, cur store.Testimonial, id string) store.Testimonial {
			item := store.Testimonial{
				ID:              id,
				Name:            in.Name,
				Role:            in.Role,
				Company:         in.Company,
				Content:         in.Content,
				Avatar:          in.Avatar,
				ProofURL:        in.ProofURL,
				IsApproved:      cur.IsApproved,
				IsUserSubmitted: cur.IsUserSubmitted,
				SortOrder:       in.Order,
			}
			if in.IsApproved != nil {
				item.IsApproved = *in.IsApproved
			}
			if in.IsUserSubmitted != nil {
				item.IsUserSubmitted = *in.IsUserSubmitted
			}
			return item
		},
		get:     s.store.GetTestimonial,
		insert:  s.store.InsertTestimonial,
		update:  s.store.UpdateTestimonial,
		payload: testimonialPayload,
		index:   s.indexTestimonial,
	}
}

// ListTestimonials returns approved entries; includeUnapproved widens the
// read to pending submissions and is gated to moderators at the HTTP layer.
func (s *Service) ListTestimonials(ctx context.Context, includeUnapproved bool) ([]map[string]any, error) {
	items, err := s.store.ListTestimonials(ctx, includeUnapproved)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, testimonialPayload(item))
	}
	return out, nil
}

func (s *Service) GetTestimonial(ctx context.Context, id string, includeUnapproved bool) (map[string]any, error) {
	item, err := s.store.GetTestimonial(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.IsApproved && !includeUnapproved {
		return nil, sql.ErrNoRows
	}
	return testimonialPayload(item), nil
}

// CreateTestimonial applies the moderation state machine. Public callers
// always land in the pending state with proofUrl discarded; an admin asking
// for isUserSubmitted=false gets an auto-approved entry with proofUrl kept.
func (s *Service) CreateTestimonial(ctx context.Context, input TestimonialInput, admin bool) (map[string]any, error) {
	if err := validateTestimonialInput(input); err != nil {
		return nil, err
	}

	userSubmitted := true
	if input.IsUserSubmitted != nil {
		userSubmitted = *input.IsUserSubmitted
	}

	item := store.Testimonial{
		ID:        util.NewRowID(),
		Name:      input.Name,
		Role:      input.Role,
		Company:   input.Company,
		Content:   input.Content,
		Avatar:    input.Avatar,
		SortOrder: input.Order,
	}
	if admin && !userSubmitted {
		item.IsUserSubmitted = false
		item.IsApproved = true
		item.ProofURL = input.ProofURL
	} else {
		item.IsUserSubmitted = true
		item.IsApproved = false
		item.ProofURL = ""
	}

	if err := s.store.InsertTestimonial(ctx, item); err != nil {
		return nil, err
	}
	fresh, err := s.store.GetTestimonial(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	s.indexTestimonial(fresh)
	return testimonialPayload(fresh), nil
}

func (s *Service) UpdateTestimonial(ctx context.Context, id string, input TestimonialInput) (map[string]any, error) {
	return updateResource(ctx, s.testimonialOps(), id, input)
}

func (s *Service) DeleteTestimonial(ctx context.Context, id string) error {
	if err := s.store.DeleteTestimonial(ctx, id); err != nil {
		return err
	}
	if s.search != nil {
		s.search.Delete(search.ResultTestimonial, id)
	}
	return nil
}

// ModerateTestimonial handles the dedicated approve/reject action. Reject is
// not a delete: the entry stays stored and can be re-approved later.
func (s *Service) ModerateTestimonial(ctx context.Context, id, action string) (map[string]any, error) {
	var approved bool
	switch action {
	case "approve":
		approved = true
	case "reject":
		approved = false
	default:
		return nil, invalidInput("action must be approve or reject", nil)
	}

	if err := s.store.SetTestimonialApproval(ctx, id, approved); err != nil {
		return nil, err
	}
	fresh, err := s.store.GetTestimonial(ctx, id)
	if err != nil {
		return nil, err
	}
	s.indexTestimonial(fresh)
	return testimonialPayload(fresh), nil
}
