package appointment

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medibook/booking-api/internal/model"
	"github.com/medibook/booking-api/internal/service/booking"
	"github.com/medibook/booking-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/availability", h.GetAvailability)
		appointments.POST("", h.Book)
		appointments.GET("", h.List)
		appointments.GET("/upcoming", h.ListUpcoming)
		appointments.GET("/past", h.ListPast)
		appointments.GET("/:id", h.Get)
		appointments.PATCH("/:id/cancel", h.Cancel)
		appointments.POST("/:id/reschedule", h.Reschedule)
	}
}

func (h *Handler) GetAvailability(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Query("doctor_id"))
	if err != nil {
		httputil.RespondWithValidationError(c, "invalid doctor ID")
		return
	}
	date := c.Query("date")
	if date == "" {
		httputil.RespondWithValidationError(c, "missing required query parameters: doctor_id, date")
		return
	}
	includeBooked := strings.EqualFold(c.Query("include_booked"), "true")

	slots, err := h.service.Availability(c.Request.Context(), doctorID, date, includeBooked)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if slots == nil {
		slots = []*model.Appointment{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, slots)
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, "missing required fields: patient_id, doctor_id, date, time")
		return
	}

	appointment, err := h.service.Book(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, appointment)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, "invalid appointment ID")
		return
	}

	appointment, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointment)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	if id := c.Query("patient_id"); id != "" {
		patientID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithValidationError(c, "invalid patient ID")
			return
		}
		filters.PatientID = patientID
	}
	if id := c.Query("doctor_id"); id != "" {
		doctorID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithValidationError(c, "invalid doctor ID")
			return
		}
		filters.DoctorID = doctorID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}
	if date := c.Query("date"); date != "" {
		filters.Date = date
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if appointments == nil {
		appointments = []*model.AppointmentDetail{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, "invalid appointment ID")
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"message": "appointment cancelled and slot freed"})
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithValidationError(c, "invalid appointment ID")
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err.Error())
		return
	}

	newID, err := h.service.Reschedule(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"appointment_id": newID})
}

func (h *Handler) ListUpcoming(c *gin.Context) {
	patientID, doctorID, limit, ok := parseListParams(c)
	if !ok {
		return
	}

	appointments, err := h.service.ListUpcoming(c.Request.Context(), patientID, doctorID, limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if appointments == nil {
		appointments = []*model.AppointmentDetail{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) ListPast(c *gin.Context) {
	patientID, doctorID, limit, ok := parseListParams(c)
	if !ok {
		return
	}

	appointments, err := h.service.ListPast(c.Request.Context(), patientID, doctorID, limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if appointments == nil {
		appointments = []*model.AppointmentDetail{}
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func parseListParams(c *gin.Context) (patientID, doctorID uuid.UUID, limit int, ok bool) {
	if id := c.Query("patient_id"); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithValidationError(c, "invalid patient ID")
			return uuid.Nil, uuid.Nil, 0, false
		}
		patientID = parsed
	}
	if id := c.Query("doctor_id"); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithValidationError(c, "invalid doctor ID")
			return uuid.Nil, uuid.Nil, 0, false
		}
		doctorID = parsed
	}
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			httputil.RespondWithValidationError(c, "invalid limit")
			return uuid.Nil, uuid.Nil, 0, false
		}
		limit = parsed
	}
	return patientID, doctorID, limit, true
}
