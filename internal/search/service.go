package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: sanitizeResults(nonNil(results), q.IncludeUnapproved), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: sanitizeResults(nonNil(results), q.IncludeUnapproved), Total: total, Query: q.Text}
}

// IndexExperience indexes a work experience entry (fire-and-forget to Meilisearch).
func (s *Service) IndexExperience(r ExperienceRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexExperience(r); err != nil {
			log.Printf("search: index experience %s: %v", r.ID, err)
		}
	}()
}

// IndexEducation indexes an education entry (fire-and-forget to Meilisearch).
func (s *Service) IndexEducation(r EducationRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexEducation(r); err != nil {
			log.Printf("search: index education %s: %v", r.ID, err)
		}
	}()
}

// IndexProject indexes a project (fire-and-forget to Meilisearch).
func (s *Service) IndexProject(r ProjectRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexProject(r); err != nil {
			log.Printf("search: index project %s: %v", r.ID, err)
		}
	}()
}

// IndexTestimonial indexes a testimonial (fire-and-forget to Meilisearch).
func (s *Service) IndexTestimonial(r TestimonialRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTestimonial(r); err != nil {
			log.Printf("search: index testimonial %s: %v", r.ID, err)
		}
	}()
}

// Delete removes an entity from the search index (fire-and-forget).
func (s *Service) Delete(t ResultType, id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.Delete(t, id); err != nil {
			log.Printf("search: delete %s %s: %v", t, id, err)
		}
	}()
}

// ReindexAll pushes full record sets to Meilisearch.
func (s *Service) ReindexAll(experiences []ExperienceRecord, educations []EducationRecord, projects []ProjectRecord, testimonials []TestimonialRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if err := s.meili.IndexExperiences(experiences); err != nil {
		log.Printf("search: reindex experience: %v", err)
	}
	if err := s.meili.IndexEducations(educations); err != nil {
		log.Printf("search: reindex education: %v", err)
	}
	if err := s.meili.IndexProjects(projects); err != nil {
		log.Printf("search: reindex projects: %v", err)
	}
	if err := s.meili.IndexTestimonials(testimonials); err != nil {
		log.Printf("search: reindex testimonials: %v", err)
	}
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	experiences, educations, projects, testimonials, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.ReindexAll(experiences, educations, projects, testimonials)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}

// sanitizeResults drops unapproved testimonials from public result sets even
// if a backend ignored the filter.
func sanitizeResults(results []Result, includeUnapproved bool) []Result {
	if includeUnapproved {
		return results
	}
	filtered := make([]Result, 0, len(results))
	for _, result := range results {
		if result.Type == ResultTestimonial && !result.Approved {
			continue
		}
		filtered = append(filtered, result)
	}
	return filtered
}
