package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"portfolio/api/internal/auth"
	"portfolio/api/internal/authpw"
	"portfolio/api/internal/config"
	"portfolio/api/internal/email"
	"portfolio/api/internal/export"
	"portfolio/api/internal/rbac"
	"portfolio/api/internal/search"
	"portfolio/api/internal/store"
	"portfolio/api/internal/uploads"
	"portfolio/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Email        string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	CreateUser(context.Context, store.User) error
	UpdateUserRole(context.Context, string, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	ListWorkExperience(context.Context) ([]store.WorkExperience, error)
	GetWorkExperience(context.Context, string) (store.WorkExperience, error)
	InsertWorkExperience(context.Context, store.WorkExperience) error
	UpdateWorkExperience(context.Context, store.WorkExperience) error
	DeleteWorkExperience(context.Context, string) error
	WorkExperienceKeyExists(context.Context, string, string, string) (bool, error)

	ListEducation(context.Context) ([]store.Education, error)
	GetEducation(context.Context, string) (store.Education, error)
	InsertEducation(context.Context, store.Education) error
	UpdateEducation(context.Context, store.Education) error
	DeleteEducation(context.Context, string) error
	EducationKeyExists(context.Context, string, string, string, string) (bool, error)

	ListProjects(context.Context) ([]store.Project, error)
	GetProject(context.Context, string) (store.Project, error)
	InsertProject(context.Context, store.Project) error
	UpdateProject(context.Context, store.Project) error
	DeleteProject(context.Context, string) error
	ProjectKeyExists(context.Context, string, string) (bool, error)

	ListTestimonials(context.Context, bool) ([]store.Testimonial, error)
	GetTestimonial(context.Context, string) (store.Testimonial, error)
	InsertTestimonial(context.Context, store.Testimonial) error
	UpdateTestimonial(context.Context, store.Testimonial) error
	DeleteTestimonial(context.Context, string) error
	SetTestimonialApproval(context.Context, string, bool) error

	Ping(ctx context.Context) error
}

// SessionStore holds hashed refresh tokens. Redis when configured,
// otherwise the Postgres refresh_sessions table.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions SessionStore
	search   *search.Service
	authpw   *authpw.Service
	email    *email.Service
	exporter *export.Service
	uploads  *uploads.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, searchService *search.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: dataStore,
		search:   searchService,
		authpw:   authpw.NewService(dataStore, cfg.JWTSecret),
	}
}

func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessionStore SessionStore, searchService *search.Service) *Service {
	service := New(cfg, dataStore, searchService)
	service.sessions = sessionStore
	return service
}

func (s *Service) SetEmailService(svc *email.Service)    { s.email = svc }
func (s *Service) SetExportService(svc *export.Service)  { s.exporter = svc }
func (s *Service) SetUploadService(svc *uploads.Service) { s.uploads = svc }

func (s *Service) AuthPasswordService() *authpw.Service { return s.authpw }

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// Bootstrap provisions the configured admin account and warms the search
// index. Safe to run on every startup.
func (s *Service) Bootstrap(ctx context.Context) error {
	adminEmail := strings.TrimSpace(s.cfg.AdminEmail)
	if adminEmail != "" && s.cfg.AdminPassword != "" {
		if err := s.ensureAdmin(ctx, adminEmail, s.cfg.AdminPassword); err != nil {
			return fmt.Errorf("provision admin: %w", err)
		}
	}

	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

func (s *Service) ensureAdmin(ctx context.Context, adminEmail, password string) error {
	existing, err := s.store.GetUserByEmail(ctx, adminEmail)
	if err == nil {
		if existing.Role == "admin" {
			return nil
		}
		return s.store.UpdateUserRole(ctx, existing.ID, "admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	name := adminEmail
	if at := strings.Index(adminEmail, "@"); at > 0 {
		name = adminEmail[:at]
	}
	return s.store.CreateUser(ctx, store.User{
		ID:              util.NewRowID(),
		DisplayName:     name,
		Email:           adminEmail,
		PasswordHash:    string(hash),
		Role:            "admin",
		IsEmailVerified: true,
	})
}

// CreateSession issues an access + refresh token pair for a signed-in user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	found, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	// Re-resolve the account so a role change since issue time sticks.
	user, err := s.store.GetUserByID(ctx, found.ID)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Role:  user.Role,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Email:        user.Email,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SendVerificationEmail delivers the signup verification link in the
// background. No-op when SMTP is not configured.
func (s *Service) SendVerificationEmail(to, userName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := strings.TrimRight(s.cfg.SiteURL, "/") + "/verify-email?token=" + token
	go func() {
		if err := s.email.SendVerificationEmail(to, userName, url); err != nil {
			log.Printf("verification email to %s failed: %v", to, err)
		}
	}()
}

func (s *Service) SendPasswordResetEmail(to, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := strings.TrimRight(s.cfg.SiteURL, "/") + "/reset-password?token=" + token
	go func() {
		if err := s.email.SendPasswordResetEmail(to, to, url); err != nil {
			log.Printf("password reset email to %s failed: %v", to, err)
		}
	}()
}

// Search queries the portfolio index. Unapproved testimonials are only
// visible when the caller passed the moderation gate.
func (s *Service) Search(ctx context.Context, q, filterType string, limit, offset int, includeUnapproved bool) (map[string]any, error) {
	if s.search == nil {
		return map[string]any{"results": []search.Result{}, "total": 0, "query": q}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	resp := s.search.Search(search.Query{
		Text:              q,
		FilterType:        search.ResultType(filterType),
		Limit:             limit,
		Offset:            offset,
		IncludeUnapproved: includeUnapproved,
	})
	return map[string]any{
		"results": resp.Results,
		"total":   resp.Total,
		"query":   resp.Query,
	}, nil
}

type ContactInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	Phone       string `json:"phone"`
	Company     string `json:"company"`
	InquiryType string `json:"inquiryType"`
}

var allowedInquiryTypes = map[string]struct{}{
	"general":       {},
	"project":       {},
	"job":           {},
	"collaboration": {},
	"other":         {},
}

// Contact validates a contact-form submission and forwards it to the site
// owner, with an acknowledgement to the sender.
func (s *Service) Contact(ctx context.Context, input ContactInput) error {
	missing := missingFields(map[string]string{
		"name":    input.Name,
		"email":   input.Email,
		"subject": input.Subject,
		"message": input.Message,
	})
	if len(missing) > 0 {
		return invalidInput("Missing required fields", map[string]any{"fields": missing})
	}
	if !strings.Contains(input.Email, "@") {
		return invalidInput("email must be a valid address", nil)
	}
	if input.InquiryType != "" {
		if _, ok := allowedInquiryTypes[input.InquiryType]; !ok {
			return invalidInput("unknown inquiryType", nil)
		}
	}

	if !s.SMTPConfigured() {
		log.Printf("contact message from %s <%s> dropped: SMTP not configured", input.Name, input.Email)
		return nil
	}

	if err := s.email.SendContactEmail(s.cfg.ContactEmail, email.ContactData{
		AppName: "Portfolio",
		Name:    input.Name,
		Email:   input.Email,
		Subject: input.Subject,
		Message: input.Message,
	}); err != nil {
		return fmt.Errorf("send contact email: %w", err)
	}

	// Acknowledgement is best-effort; the owner copy already landed.
	go func() {
		body := fmt.Sprintf("Hi %s,\n\nThanks for reaching out. I read every message and will get back to you soon.\n", input.Name)
		if err := s.email.SendEmail([]string{input.Email}, "Thanks for your message", body); err != nil {
			log.Printf("contact auto-reply to %s failed: %v", input.Email, err)
		}
	}()
	return nil
}

// ExportResume renders the current portfolio content into the requested
// document format.
func (s *Service) ExportResume(ctx context.Context, format string, includeTestimonials bool) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Résumé export is not configured", nil)
	}
	switch export.Format(format) {
	case export.FormatPDF, export.FormatDOCX:
	default:
		return nil, invalidInput("format must be pdf or docx", nil)
	}
	return s.exporter.Export(ctx, export.Request{
		Format:              export.Format(format),
		IncludeTestimonials: includeTestimonials,
	})
}

// UploadAvatar stores a testimonial avatar image and returns its public URL.
func (s *Service) UploadAvatar(ctx context.Context, testimonialID string, data []byte) (map[string]any, error) {
	if s.uploads == nil {
		return nil, domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Avatar uploads are not configured", nil)
	}
	object, err := s.uploads.UploadAvatar(ctx, testimonialID, data)
	if err != nil {
		switch err {
		case uploads.ErrEmptyUpload, uploads.ErrUploadTooLarge, uploads.ErrUnsupportedType:
			return nil, invalidInput(err.Error(), nil)
		}
		return nil, err
	}
	return map[string]any{
		"object": object,
		"url":    s.uploads.PublicURL(object),
	}, nil
}

// ExportDataStore bridges the content store into the export renderer.
func ExportDataStore(db dataStore) export.DataStore {
	return exportStore{db: db}
}

type exportStore struct {
	db dataStore
}

func (e exportStore) ListExperience(ctx context.Context) ([]export.ExperienceInfo, error) {
	items, err := e.db.ListWorkExperience(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]export.ExperienceInfo, 0, len(items))
	for _, item := range items {
		out = append(out, export.ExperienceInfo{
			Title:        item.Title,
			Company:      item.Company,
			Location:     item.Location,
			Duration:     item.Duration,
			Description:  item.Description,
			Technologies: item.Technologies,
			Achievements: item.Achievements,
		})
	}
	return out, nil
}

func (e exportStore) ListEducation(ctx context.Context) ([]export.EducationInfo, error) {
	items, err := e.db.ListEducation(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]export.EducationInfo, 0, len(items))
	for _, item := range items {
		out = append(out, export.EducationInfo{
			Degree:      item.Degree,
			Field:       item.Field,
			Institution: item.Institution,
			Location:    item.Location,
			Duration:    item.Duration,
			Description: item.Description,
			GPA:         item.GPA,
		})
	}
	return out, nil
}

func (e exportStore) ListProjects(ctx context.Context) ([]export.ProjectInfo, error) {
	items, err := e.db.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]export.ProjectInfo, 0, len(items))
	for _, item := range items {
		out = append(out, export.ProjectInfo{
			Title:        item.Title,
			Description:  item.Description,
			Duration:     item.Duration,
			GithubURL:    item.GithubURL,
			LiveURL:      item.LiveURL,
			Technologies: item.Technologies,
			Highlights:   item.Highlights,
		})
	}
	return out, nil
}

func (e exportStore) ListApprovedTestimonials(ctx context.Context) ([]export.TestimonialInfo, error) {
	items, err := e.db.ListTestimonials(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]export.TestimonialInfo, 0, len(items))
	for _, item := range items {
		out = append(out, export.TestimonialInfo{
			Name:    item.Name,
			Role:    item.Role,
			Company: item.Company,
			Content: item.Content,
		})
	}
	return out, nil
}
