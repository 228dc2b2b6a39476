package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var resumeTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"join":  strings.Join,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/resume.html")
	if err != nil {
		// Fallback to built-in template if file not found
		resumeTemplate = template.Must(template.New("resume").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	resumeTemplate = template.Must(template.New("resume").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for résumé template rendering
type TemplateData struct {
	Owner        ProfileInfo
	Experiences  []ExperienceInfo
	Educations   []EducationInfo
	Projects     []ProjectInfo
	Testimonials []TestimonialInfo
	GeneratedAt  time.Time
}

// RenderResumeHTML renders the résumé template with provided data
func RenderResumeHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := resumeTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Owner.Name}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .entry { margin-bottom: 1rem; }
  </style>
</head>
<body>
  <h1>{{.Owner.Name}}</h1>
  {{if .Owner.Title}}<p>{{.Owner.Title}}</p>{{end}}
  <h2>Experience</h2>
  {{range .Experiences}}<div class="entry"><strong>{{.Title}}</strong>, {{.Company}} — {{.Duration}}<br>{{.Description}}</div>{{end}}
  <h2>Education</h2>
  {{range .Educations}}<div class="entry"><strong>{{.Degree}}, {{.Field}}</strong>, {{.Institution}} — {{.Duration}}</div>{{end}}
  <h2>Projects</h2>
  {{range .Projects}}<div class="entry"><strong>{{.Title}}</strong><br>{{.Description}}</div>{{end}}
  {{if .Testimonials}}
  <h2>Testimonials</h2>
  {{range .Testimonials}}<div class="entry">&ldquo;{{.Content}}&rdquo; — {{.Name}}, {{.Role}}, {{.Company}}</div>{{end}}
  {{end}}
</body>
</html>`
