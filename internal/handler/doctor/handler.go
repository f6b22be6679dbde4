package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medibook/booking-api/internal/model"
	"github.com/medibook/booking-api/internal/service/doctor"
	"github.com/medibook/booking-api/pkg/httputil"
)

type Handler struct {
	service *doctor.Service
}

func NewHandler(service *doctor.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.POST("", h.Create)
		doctors.GET("", h.List)
		doctors.GET("/:id", h.Get)
		doctors.PUT("/:id", h.Update)
		doctors.DELETE("/:id", h.Delete)
		doctors.GET("/:id/appointments", h.Appointments)
		doctors.GET("/specialization/:specialization", h.BySpecialization)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, "missing required fields: name, specialization")
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, created)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, "invalid doctor ID")
		return
	}

	found, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, found)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, "invalid doctor ID")
		return
	}

	var req model.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err.Error())
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, updated)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, "invalid doctor ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "doctor deleted"})
}

func (h *Handler) List(c *gin.Context) {
	var (
		doctors []*model.Doctor
		err     error
	)
	if specialization := c.Query("specialization"); specialization != "" {
		doctors, err = h.service.ListBySpecialization(c.Request.Context(), specialization)
	} else {
		doctors, err = h.service.List(c.Request.Context())
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if doctors == nil {
		doctors = []*model.Doctor{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doctors)
}

func (h *Handler) BySpecialization(c *gin.Context) {
	doctors, err := h.service.ListBySpecialization(c.Request.Context(), c.Param("specialization"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if doctors == nil {
		doctors = []*model.Doctor{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doctors)
}

func (h *Handler) Appointments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, "invalid doctor ID")
		return
	}

	appointments, err := h.service.Appointments(c.Request.Context(), id, model.AppointmentStatus(c.Query("status")), c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if appointments == nil {
		appointments = []*model.AppointmentDetail{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}
