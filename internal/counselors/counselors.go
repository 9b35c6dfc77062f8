// Package counselors maintains the professional directory.
//
// Counselors apply through the public endpoint and stay unverified and
// unavailable until an admin approves them. Only verified profiles are
// listed, and contact details are stripped from listings but kept on the
// individual profile view.
package counselors

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/mindsupport/internal/idgen"
	"github.com/mbd888/mindsupport/internal/validation"
)

var (
	ErrCounselorNotFound = errors.New("counselor not found")
	ErrDuplicateEmail    = errors.New("counselor with this email already exists")
	ErrEmailRequired     = errors.New("email is required")
	ErrNameRequired      = errors.New("name is required")
	ErrNoSpecialties     = errors.New("at least one specialty is required")
)

// Session types a counselor can offer.
const (
	SessionIndividual = "individual"
	SessionGroup      = "group"
	SessionFamily     = "family"
	SessionOnline     = "online"
)

// Counselor is a directory profile.
type Counselor struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Specialties     []string  `json:"specialties"`
	Bio             string    `json:"bio,omitempty"`
	Location        string    `json:"location,omitempty"`
	ExperienceYears int       `json:"experienceYears,omitempty"`
	Education       []string  `json:"education"`
	Certifications  []string  `json:"certifications"`
	Languages       []string  `json:"languages"`
	SessionTypes    []string  `json:"sessionTypes"`
	RatePerSession  float64   `json:"ratePerSession,omitempty"`
	IsAvailable     bool      `json:"isAvailable"`
	IsVerified      bool      `json:"isVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Public returns a copy with contact details stripped, for listings.
func (c *Counselor) Public() *Counselor {
	cp := *c
	cp.Email = ""
	cp.Phone = ""
	return &cp
}

// Application is a request to join the directory.
type Application struct {
	Name            string
	Email           string
	Phone           string
	Specialties     []string
	Bio             string
	Location        string
	ExperienceYears int
	Education       []string
	Certifications  []string
	Languages       []string
	SessionTypes    []string
	RatePerSession  float64
}

// Filter narrows directory listings.
type Filter struct {
	Specialty string
	Location  string // case-insensitive substring match
	Available *bool
	Verified  *bool
	Limit     int
	Offset    int
}

// Store persists counselor profiles.
type Store interface {
	// CreateCounselor inserts a profile, returning ErrDuplicateEmail when
	// the email is already registered.
	CreateCounselor(ctx context.Context, c *Counselor) error

	GetCounselor(ctx context.Context, id string) (*Counselor, error)
	ListCounselors(ctx context.Context, f Filter) ([]*Counselor, error)

	// Specialties returns the distinct specialties of verified
	// counselors, sorted.
	Specialties(ctx context.Context) ([]string, error)

	// SetVerified flips the verification flag. Approval also makes the
	// counselor available.
	SetVerified(ctx context.Context, id string, verified, available bool, at time.Time) error

	DeleteCounselor(ctx context.Context, id string) error

	// Counts returns verified and pending profile totals.
	Counts(ctx context.Context) (verified, pending int, err error)
}

// Service provides directory operations.
type Service struct {
	store Store
}

// NewService creates a counselor service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Apply files a new counselor application. Profiles start unverified and
// unavailable until an admin approves them.
func (s *Service) Apply(ctx context.Context, app Application) (*Counselor, error) {
	if app.Name == "" {
		return nil, ErrNameRequired
	}
	if app.Email == "" {
		return nil, ErrEmailRequired
	}
	if len(app.Specialties) == 0 {
		return nil, ErrNoSpecialties
	}

	now := time.Now().UTC()
	c := &Counselor{
		ID:              idgen.WithPrefix("cns_"),
		Name:            validation.SanitizeString(app.Name, 200),
		Email:           app.Email,
		Phone:           app.Phone,
		Specialties:     nonNil(app.Specialties),
		Bio:             validation.SanitizeString(app.Bio, validation.MaxStringLength),
		Location:        validation.SanitizeString(app.Location, 200),
		ExperienceYears: app.ExperienceYears,
		Education:       nonNil(app.Education),
		Certifications:  nonNil(app.Certifications),
		Languages:       nonNil(app.Languages),
		SessionTypes:    nonNil(app.SessionTypes),
		RatePerSession:  app.RatePerSession,
		IsAvailable:     false,
		IsVerified:      false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateCounselor(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns verified counselors with contact details stripped.
func (s *Service) List(ctx context.Context, f Filter) ([]*Counselor, error) {
	verified := true
	f.Verified = &verified
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	found, err := s.store.ListCounselors(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]*Counselor, len(found))
	for i, c := range found {
		out[i] = c.Public()
	}
	return out, nil
}

// Get returns one verified counselor with contact details included.
func (s *Service) Get(ctx context.Context, id string) (*Counselor, error) {
	c, err := s.store.GetCounselor(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsVerified {
		// Unverified profiles are invisible to the public surface.
		return nil, ErrCounselorNotFound
	}
	return c, nil
}

// Specialties returns the distinct specialties across verified profiles.
func (s *Service) Specialties(ctx context.Context) ([]string, error) {
	return s.store.Specialties(ctx)
}

// Pending lists unverified applications for admin review.
func (s *Service) Pending(ctx context.Context, limit int) ([]*Counselor, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	verified := false
	return s.store.ListCounselors(ctx, Filter{Verified: &verified, Limit: limit})
}

// Verify approves an application, making the counselor visible and
// available.
func (s *Service) Verify(ctx context.Context, id string) error {
	return s.store.SetVerified(ctx, id, true, true, time.Now().UTC())
}

// Reject removes an unverified application.
func (s *Service) Reject(ctx context.Context, id string) error {
	c, err := s.store.GetCounselor(ctx, id)
	if err != nil {
		return err
	}
	if c.IsVerified {
		return errors.New("cannot reject a verified counselor")
	}
	return s.store.DeleteCounselor(ctx, id)
}

// Counts returns verified and pending totals for admin reporting.
func (s *Service) Counts(ctx context.Context) (verified, pending int, err error) {
	return s.store.Counts(ctx)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
