package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxExperience   = "portfolio_experience"
	idxEducation    = "portfolio_education"
	idxProjects     = "portfolio_projects"
	idxTestimonials = "portfolio_testimonials"
)

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes.
// Returns a client even when the initial connection fails; the health loop
// reconfigures indexes once Meilisearch comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		primaryKey string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxExperience,
			primaryKey: "id",
			searchable: []string{"title", "company", "description"},
		},
		{
			uid:        idxEducation,
			primaryKey: "id",
			searchable: []string{"degree", "field", "institution", "description"},
		},
		{
			uid:        idxProjects,
			primaryKey: "id",
			searchable: []string{"title", "description"},
		},
		{
			uid:        idxTestimonials,
			primaryKey: "id",
			filterable: []string{"approved"},
			searchable: []string{"name", "company", "content"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: idx.primaryKey,
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		if len(idx.filterable) > 0 {
			filterableInterface := make([]interface{}, len(idx.filterable))
			for i, v := range idx.filterable {
				filterableInterface[i] = v
			}
			if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
				log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
			}
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries all four indexes (or a filtered subset) and merges results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxExperience, ResultExperience},
		{idxEducation, ResultEducation},
		{idxProjects, ResultProject},
		{idxTestimonials, ResultTestimonial},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              ti.uid,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		}

		if ti.rtyp == ResultTestimonial && !q.IncludeUnapproved {
			sr.Filter = []string{"approved = true"}
		}
		queries = append(queries, sr)
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxExperience:
		return ResultExperience
	case idxEducation:
		return ResultEducation
	case idxProjects:
		return ResultProject
	case idxTestimonials:
		return ResultTestimonial
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")

	switch rtyp {
	case ResultExperience:
		title := firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
		company := firstNonBlank(decodeFormattedString(hit, "company"), decodeString(hit, "company"))
		r.Title = joinNonBlank(title, company, " at ")
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description"))
	case ResultEducation:
		degree := firstNonBlank(decodeFormattedString(hit, "degree"), decodeString(hit, "degree"))
		institution := firstNonBlank(decodeFormattedString(hit, "institution"), decodeString(hit, "institution"))
		r.Title = joinNonBlank(degree, institution, ", ")
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description"))
	case ResultProject:
		r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description"))
	case ResultTestimonial:
		r.Title = firstNonBlank(decodeFormattedString(hit, "name"), decodeString(hit, "name"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "content"), decodeString(hit, "content"))
		r.Approved = decodeBool(hit, "approved")
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeBool(hit meili.Hit, key string) bool {
	raw, ok := hit[key]
	if !ok {
		return false
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return false
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func joinNonBlank(a, b, sep string) string {
	if strings.TrimSpace(a) == "" {
		return b
	}
	if strings.TrimSpace(b) == "" {
		return a
	}
	return a + sep + b
}

// IndexExperience adds or updates a work experience entry in the search index.
func (m *Meili) IndexExperience(r ExperienceRecord) error {
	_, err := m.client.Index(idxExperience).AddDocuments([]ExperienceRecord{r}, nil)
	return err
}

// IndexEducation adds or updates an education entry in the search index.
func (m *Meili) IndexEducation(r EducationRecord) error {
	_, err := m.client.Index(idxEducation).AddDocuments([]EducationRecord{r}, nil)
	return err
}

// IndexProject adds or updates a project in the search index.
func (m *Meili) IndexProject(r ProjectRecord) error {
	_, err := m.client.Index(idxProjects).AddDocuments([]ProjectRecord{r}, nil)
	return err
}

// IndexTestimonial adds or updates a testimonial in the search index.
func (m *Meili) IndexTestimonial(r TestimonialRecord) error {
	_, err := m.client.Index(idxTestimonials).AddDocuments([]TestimonialRecord{r}, nil)
	return err
}

// Delete removes an entity from its search index.
func (m *Meili) Delete(t ResultType, id string) error {
	uid := ""
	switch t {
	case ResultExperience:
		uid = idxExperience
	case ResultEducation:
		uid = idxEducation
	case ResultProject:
		uid = idxProjects
	case ResultTestimonial:
		uid = idxTestimonials
	default:
		return fmt.Errorf("unknown result type %q", t)
	}
	_, err := m.client.Index(uid).DeleteDocument(id, nil)
	return err
}

// IndexExperiences bulk-indexes work experience entries.
func (m *Meili) IndexExperiences(records []ExperienceRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxExperience).AddDocuments(records, nil)
	return err
}

// IndexEducations bulk-indexes education entries.
func (m *Meili) IndexEducations(records []EducationRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxEducation).AddDocuments(records, nil)
	return err
}

// IndexProjects bulk-indexes projects.
func (m *Meili) IndexProjects(records []ProjectRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxProjects).AddDocuments(records, nil)
	return err
}

// IndexTestimonials bulk-indexes testimonials.
func (m *Meili) IndexTestimonials(records []TestimonialRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxTestimonials).AddDocuments(records, nil)
	return err
}
