// Package booking implements slot materialization and the booking conflict
// rules: a slot can be held by at most one patient, and a patient cannot
// hold two slots at the same date and time.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/medibook/booking-api/internal/model"
	"github.com/medibook/booking-api/internal/repository"
	"github.com/medibook/booking-api/internal/schedule"
	apperrors "github.com/medibook/booking-api/pkg/errors"
	"github.com/medibook/booking-api/pkg/metrics"
)

// Outbox event types emitted by the booking flow.
const (
	EventAppointmentBooked      = "appointment.booked"
	EventAppointmentCancelled   = "appointment.cancelled"
	EventAppointmentRescheduled = "appointment.rescheduled"
)

const (
	doctorCacheTTL       = 5 * time.Minute
	upcomingWindowDays   = 7
	defaultUpcomingLimit = 10
	defaultPastLimit     = 50
)

type Service struct {
	repo        repository.AppointmentRepository
	doctorRepo  repository.DoctorRepository
	patientRepo repository.PatientRepository
	outbox      repository.OutboxRepository
	doctorCache *cache.Cache
	metrics     *metrics.Metrics
}

// NewService wires the booking flow. metrics may be nil in tests.
func NewService(
	repo repository.AppointmentRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	outbox repository.OutboxRepository,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:        repo,
		doctorRepo:  doctorRepo,
		patientRepo: patientRepo,
		outbox:      outbox,
		doctorCache: cache.New(doctorCacheTTL, 2*doctorCacheTTL),
		metrics:     m,
	}
}

// getDoctor reads through a short TTL cache; templates change rarely and the
// availability path hits this on every request.
func (s *Service) getDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if cached, ok := s.doctorCache.Get(id.String()); ok {
		return cached.(*model.Doctor), nil
	}
	doctor, err := s.doctorRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.doctorCache.Set(id.String(), doctor, cache.DefaultExpiration)
	return doctor, nil
}

// InvalidateDoctor drops a doctor from the read-through cache so the next
// availability expansion picks up a changed template immediately instead of
// waiting out the TTL.
func (s *Service) InvalidateDoctor(id uuid.UUID) {
	s.doctorCache.Delete(id.String())
}

func parseDate(date string) (time.Time, error) {
	parsed, err := time.ParseInLocation(model.DateLayout, date, time.Local)
	if err != nil {
		return time.Time{}, apperrors.Validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	return parsed, nil
}

// today is local midnight; an appointment is only in the past once its whole
// calendar date is behind us.
func today() string {
	return time.Now().Format(model.DateLayout)
}

// EnsureSlots materializes every template slot for the doctor and date that
// is not yet persisted. Idempotent; never touches existing rows even if the
// template changed since they were created.
func (s *Service) EnsureSlots(ctx context.Context, doctorID uuid.UUID, date string) error {
	parsed, err := parseDate(date)
	if err != nil {
		return err
	}

	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return err
	}

	expected, err := schedule.TimesFor(doctor.Availability, parsed)
	if err != nil {
		return fmt.Errorf("failed to expand availability for doctor %s: %w", doctorID, err)
	}

	existing, err := s.repo.ListTimes(ctx, doctorID, date)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[t] = struct{}{}
	}

	var missing []string
	for _, t := range expected {
		if _, ok := seen[t]; !ok {
			missing = append(missing, t)
		}
	}

	if len(missing) == 0 {
		return nil
	}
	if err := s.repo.InsertFreeSlots(ctx, doctorID, date, missing); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SlotsMaterialized.Add(float64(len(missing)))
	}
	return nil
}

// Availability materializes and returns the ordered slots for a doctor and
// date, free slots only unless includeBooked is set.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date string, includeBooked bool) ([]*model.Appointment, error) {
	if _, err := parseDate(date); err != nil {
		return nil, err
	}
	if date < today() {
		return nil, apperrors.PastDate("cannot view slots for past dates")
	}

	if err := s.EnsureSlots(ctx, doctorID, date); err != nil {
		return nil, err
	}
	return s.repo.ListSlots(ctx, doctorID, date, includeBooked)
}

// Book assigns a slot to a patient. The slot transition is a conditional
// update on status, so two bookers racing for the same slot cannot both win.
func (s *Service) Book(ctx context.Context, req *model.BookAppointmentRequest) (*model.AppointmentDetail, error) {
	if _, err := parseDate(req.Date); err != nil {
		return nil, err
	}
	if _, err := schedule.ParseClock(req.Time); err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("invalid time %q, expected HH:MM", req.Time))
	}
	if req.Date < today() {
		return nil, s.conflict(apperrors.PastDate("cannot book appointments in the past"))
	}

	if _, err := s.patientRepo.Get(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.getDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	// Independent of slot state: the patient must not hold any slot at this
	// date and time, with any doctor.
	held, err := s.repo.PatientHeldAt(ctx, req.PatientID, req.Date, req.Time, nil)
	if err != nil {
		return nil, err
	}
	if held {
		return nil, s.conflict(apperrors.PatientDoubleBooked())
	}

	var slotID uuid.UUID

	slot, err := s.repo.GetByDoctorDateTime(ctx, req.DoctorID, req.Date, req.Time)
	switch {
	case err == nil:
		acquired, err := s.repo.AcquireSlot(ctx, slot.ID, req.PatientID, req.Notes)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, s.conflict(apperrors.SlotUnavailable("selected time slot is not available"))
		}
		slotID = slot.ID
	case apperrors.IsCode(err, apperrors.ErrNotFound):
		// Never materialized: book it fresh as a held row.
		appt := &model.Appointment{
			PatientID: &req.PatientID,
			DoctorID:  req.DoctorID,
			Date:      req.Date,
			Time:      req.Time,
			Notes:     req.Notes,
		}
		if err := s.repo.InsertHeld(ctx, appt); err != nil {
			return nil, err
		}
		slotID = appt.ID
	default:
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsTotal.Inc()
	}
	s.recordEvent(ctx, EventAppointmentBooked, map[string]interface{}{
		"appointment_id": slotID,
		"patient_id":     req.PatientID,
		"doctor_id":      req.DoctorID,
		"date":           req.Date,
		"time":           req.Time,
	})

	return s.repo.GetDetail(ctx, slotID)
}

// Cancel releases a held slot back to free so it is immediately rebookable.
func (s *Service) Cancel(ctx context.Context, slotID uuid.UUID) error {
	appt, err := s.repo.Get(ctx, slotID)
	if err != nil {
		return err
	}

	if appt.Status != model.AppointmentStatusHeld {
		return apperrors.InvalidState("only booked appointments can be cancelled")
	}
	if appt.Date < today() {
		return apperrors.PastDate("cannot cancel past appointments")
	}

	released, err := s.repo.ReleaseSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if !released {
		return apperrors.InvalidState("appointment is no longer booked")
	}

	if s.metrics != nil {
		s.metrics.Cancellations.Inc()
	}
	s.recordEvent(ctx, EventAppointmentCancelled, map[string]interface{}{
		"appointment_id": slotID,
		"doctor_id":      appt.DoctorID,
		"date":           appt.Date,
		"time":           appt.Time,
	})
	return nil
}

// Reschedule moves a held appointment to an already-materialized free slot,
// carrying patient and notes over. Target acquisition and source release
// happen in one repository transaction; a taken target changes nothing.
func (s *Service) Reschedule(ctx context.Context, slotID uuid.UUID, req *model.RescheduleAppointmentRequest) (uuid.UUID, error) {
	source, err := s.repo.Get(ctx, slotID)
	if err != nil {
		return uuid.Nil, err
	}
	if source.Status != model.AppointmentStatusHeld || source.PatientID == nil {
		return uuid.Nil, apperrors.InvalidState("only booked appointments can be rescheduled")
	}

	doctorID := source.DoctorID
	if req.DoctorID != nil {
		doctorID = *req.DoctorID
	}
	date := source.Date
	if req.Date != nil {
		if _, err := parseDate(*req.Date); err != nil {
			return uuid.Nil, err
		}
		date = *req.Date
	}
	timeOfDay := source.Time
	if req.Time != nil {
		if _, err := schedule.ParseClock(*req.Time); err != nil {
			return uuid.Nil, apperrors.Validation(fmt.Sprintf("invalid time %q, expected HH:MM", *req.Time))
		}
		timeOfDay = *req.Time
	}

	if date < today() {
		return uuid.Nil, apperrors.PastDate("cannot reschedule appointments to the past")
	}

	// Rescheduling never auto-creates a slot; the target must already exist
	// and be free.
	target, err := s.repo.GetByDoctorDateTime(ctx, doctorID, date, timeOfDay)
	if apperrors.IsCode(err, apperrors.ErrNotFound) {
		return uuid.Nil, s.conflict(apperrors.SlotUnavailable("new time slot is not available"))
	}
	if err != nil {
		return uuid.Nil, err
	}
	if target.Status != model.AppointmentStatusFree {
		return uuid.Nil, s.conflict(apperrors.SlotUnavailable("new time slot is not available"))
	}

	held, err := s.repo.PatientHeldAt(ctx, *source.PatientID, date, timeOfDay, &source.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if held {
		return uuid.Nil, s.conflict(apperrors.PatientDoubleBooked())
	}

	notes := source.Notes
	if req.Notes != nil {
		notes = req.Notes
	}

	if err := s.repo.Reschedule(ctx, source.ID, target.ID, *source.PatientID, notes); err != nil {
		return uuid.Nil, err
	}

	if s.metrics != nil {
		s.metrics.Reschedules.Inc()
	}
	s.recordEvent(ctx, EventAppointmentRescheduled, map[string]interface{}{
		"source_id":  source.ID,
		"target_id":  target.ID,
		"patient_id": *source.PatientID,
		"doctor_id":  doctorID,
		"date":       date,
		"time":       timeOfDay,
	})
	return target.ID, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	return s.repo.GetDetail(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetail, error) {
	return s.repo.List(ctx, filters)
}

// ListUpcoming returns held appointments in the next week.
func (s *Service) ListUpcoming(ctx context.Context, patientID, doctorID uuid.UUID, limit int) ([]*model.AppointmentDetail, error) {
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}
	from := today()
	to := time.Now().AddDate(0, 0, upcomingWindowDays).Format(model.DateLayout)
	return s.repo.ListUpcoming(ctx, patientID, doctorID, from, to, limit)
}

// ListPast returns appointments on dates before today.
func (s *Service) ListPast(ctx context.Context, patientID, doctorID uuid.UUID, limit int) ([]*model.AppointmentDetail, error) {
	if limit <= 0 {
		limit = defaultPastLimit
	}
	return s.repo.ListPast(ctx, patientID, doctorID, today(), limit)
}

// conflict counts a rejected attempt before returning it.
func (s *Service) conflict(err *apperrors.AppError) error {
	if s.metrics != nil {
		switch err.Code {
		case apperrors.ErrSlotUnavailable:
			s.metrics.BookingConflicts.WithLabelValues("slot_unavailable").Inc()
		case apperrors.ErrPatientDoubleBooked:
			s.metrics.BookingConflicts.WithLabelValues("double_booked").Inc()
		case apperrors.ErrPastDate:
			s.metrics.BookingConflicts.WithLabelValues("past_date").Inc()
		}
	}
	return err
}

// recordEvent writes a lifecycle event to the outbox for the worker to
// publish. Event loss is tolerable; the booking itself is already durable.
func (s *Service) recordEvent(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.outbox == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		return
	}
	event := &model.OutboxEvent{EventType: eventType, Payload: data}
	if err := s.outbox.Create(ctx, event); err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to record outbox event")
	}
}
