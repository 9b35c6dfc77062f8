package counselors

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for the counselor directory.
type Handler struct {
	service *Service
}

// NewHandler creates a new counselor handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up directory routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/counselors", h.ListCounselors)
	r.GET("/counselors/specialties", h.GetSpecialties)
	r.GET("/counselors/:id", h.GetCounselor)
	r.POST("/counselors", h.CreateCounselor)
}

type createCounselorRequest struct {
	Name            string   `json:"name" binding:"required"`
	Email           string   `json:"email" binding:"required,email"`
	Phone           string   `json:"phone"`
	Specialties     []string `json:"specialties" binding:"required"`
	Bio             string   `json:"bio"`
	Location        string   `json:"location"`
	ExperienceYears int      `json:"experienceYears"`
	Education       []string `json:"education"`
	Certifications  []string `json:"certifications"`
	Languages       []string `json:"languages"`
	SessionTypes    []string `json:"sessionTypes"`
	RatePerSession  float64  `json:"ratePerSession"`
}

// ListCounselors handles GET /counselors
func (h *Handler) ListCounselors(c *gin.Context) {
	f := Filter{
		Specialty: c.Query("specialty"),
		Location:  c.Query("location"),
		Limit:     20,
	}
	if a := c.Query("available"); a != "" {
		if parsed, err := strconv.ParseBool(a); err == nil {
			f.Available = &parsed
		}
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			f.Limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed > 0 {
			f.Offset = parsed
		}
	}

	found, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Error retrieving counselors",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"counselors": found,
		"count":      len(found),
	})
}

// GetSpecialties handles GET /counselors/specialties
func (h *Handler) GetSpecialties(c *gin.Context) {
	specialties, err := h.service.Specialties(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Error retrieving specialties",
		})
		return
	}
	if specialties == nil {
		specialties = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"specialties": specialties})
}

// GetCounselor handles GET /counselors/:id
func (h *Handler) GetCounselor(c *gin.Context) {
	counselor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrCounselorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "counselor_not_found",
				"message": "Counselor not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Error retrieving counselor",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"counselor": counselor})
}

// CreateCounselor handles POST /counselors
func (h *Handler) CreateCounselor(c *gin.Context) {
	var req createCounselorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "name, email, and specialties are required",
		})
		return
	}

	counselor, err := h.service.Apply(c.Request.Context(), Application{
		Name:            req.Name,
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:           req.Phone,
		Specialties:     req.Specialties,
		Bio:             req.Bio,
		Location:        req.Location,
		ExperienceYears: req.ExperienceYears,
		Education:       req.Education,
		Certifications:  req.Certifications,
		Languages:       req.Languages,
		SessionTypes:    req.SessionTypes,
		RatePerSession:  req.RatePerSession,
	})
	if err != nil {
		h.renderCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"counselor": counselor})
}

func (h *Handler) renderCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "duplicate_email",
			"message": "Counselor with this email already exists",
		})
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrEmailRequired), errors.Is(err, ErrNoSpecialties):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Error creating counselor profile",
		})
	}
}
