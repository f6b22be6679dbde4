package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/booking-api/internal/model"
	"github.com/medibook/booking-api/internal/repository"
	apperrors "github.com/medibook/booking-api/pkg/errors"
)

// AppointmentRepository enforces the same invariants as the postgres
// implementation: one row per (doctor, date, time) and conditional status
// transitions under a single lock.
type AppointmentRepository struct {
	mu       sync.Mutex
	slots    map[uuid.UUID]*model.Appointment
	patients *PatientRepository
	doctors  *DoctorRepository
}

func NewAppointmentRepository(patients *PatientRepository, doctors *DoctorRepository) *AppointmentRepository {
	return &AppointmentRepository{
		slots:    make(map[uuid.UUID]*model.Appointment),
		patients: patients,
		doctors:  doctors,
	}
}

func (r *AppointmentRepository) find(doctorID uuid.UUID, date, timeOfDay string) *model.Appointment {
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.Date == date && s.Time == timeOfDay {
			return s
		}
	}
	return nil
}

func (r *AppointmentRepository) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	clone := *s
	return &clone, nil
}

func (r *AppointmentRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	appt, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, appt), nil
}

func (r *AppointmentRepository) hydrate(ctx context.Context, appt *model.Appointment) *model.AppointmentDetail {
	detail := &model.AppointmentDetail{Appointment: *appt}
	if r.doctors != nil {
		if doc, err := r.doctors.Get(ctx, appt.DoctorID); err == nil {
			detail.DoctorName = &doc.Name
			detail.DoctorSpecialization = &doc.Specialization
			detail.DoctorEmail = &doc.Email
			detail.DoctorPhone = doc.Phone
		}
	}
	if r.patients != nil && appt.PatientID != nil {
		if p, err := r.patients.Get(ctx, *appt.PatientID); err == nil {
			detail.PatientName = &p.Name
			detail.PatientEmail = &p.Email
			detail.PatientPhone = p.Phone
		}
	}
	return detail
}

func (r *AppointmentRepository) GetByDoctorDateTime(_ context.Context, doctorID uuid.UUID, date, timeOfDay string) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.find(doctorID, date, timeOfDay); s != nil {
		clone := *s
		return &clone, nil
	}
	return nil, apperrors.NotFound("appointment")
}

func (r *AppointmentRepository) ListTimes(_ context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var times []string
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.Date == date {
			times = append(times, s.Time)
		}
	}
	sort.Strings(times)
	return times, nil
}

func (r *AppointmentRepository) InsertFreeSlots(_ context.Context, doctorID uuid.UUID, date string, times []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, t := range times {
		if r.find(doctorID, date, t) != nil {
			continue
		}
		id := uuid.New()
		r.slots[id] = &model.Appointment{
			Base:     model.Base{ID: id, CreatedAt: now, UpdatedAt: now},
			DoctorID: doctorID,
			Date:     date,
			Time:     t,
			Status:   model.AppointmentStatusFree,
		}
	}
	return nil
}

func (r *AppointmentRepository) InsertHeld(_ context.Context, appt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(appt.DoctorID, appt.Date, appt.Time) != nil {
		return apperrors.SlotUnavailable("selected time slot is not available")
	}

	appt.ID = uuid.New()
	appt.Status = model.AppointmentStatusHeld
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	clone := *appt
	r.slots[appt.ID] = &clone
	return nil
}

func (r *AppointmentRepository) AcquireSlot(_ context.Context, slotID, patientID uuid.UUID, notes *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquireLocked(slotID, patientID, notes), nil
}

func (r *AppointmentRepository) acquireLocked(slotID, patientID uuid.UUID, notes *string) bool {
	s, ok := r.slots[slotID]
	if !ok || s.Status != model.AppointmentStatusFree {
		return false
	}
	pid := patientID
	s.PatientID = &pid
	s.Status = model.AppointmentStatusHeld
	s.Notes = notes
	s.UpdatedAt = time.Now()
	return true
}

func (r *AppointmentRepository) ReleaseSlot(_ context.Context, slotID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releaseLocked(slotID), nil
}

func (r *AppointmentRepository) releaseLocked(slotID uuid.UUID) bool {
	s, ok := r.slots[slotID]
	if !ok || s.Status != model.AppointmentStatusHeld {
		return false
	}
	s.PatientID = nil
	s.Status = model.AppointmentStatusFree
	s.Notes = nil
	s.UpdatedAt = time.Now()
	return true
}

func (r *AppointmentRepository) Reschedule(_ context.Context, sourceID, targetID, patientID uuid.UUID, notes *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.acquireLocked(targetID, patientID, notes) {
		return apperrors.SlotUnavailable("new time slot is not available")
	}
	if !r.releaseLocked(sourceID) {
		// Undo the target acquisition: both halves or neither.
		r.releaseLocked(targetID)
		return apperrors.InvalidState("appointment is no longer booked")
	}
	return nil
}

func (r *AppointmentRepository) PatientHeldAt(_ context.Context, patientID uuid.UUID, date, timeOfDay string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		if excludeID != nil && s.ID == *excludeID {
			continue
		}
		if s.Status == model.AppointmentStatusHeld &&
			s.PatientID != nil && *s.PatientID == patientID &&
			s.Date == date && s.Time == timeOfDay {
			return true, nil
		}
	}
	return false, nil
}

func (r *AppointmentRepository) ListSlots(_ context.Context, doctorID uuid.UUID, date string, includeBooked bool) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Appointment
	for _, s := range r.slots {
		if s.DoctorID != doctorID || s.Date != date {
			continue
		}
		if !includeBooked && s.Status != model.AppointmentStatusFree {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (r *AppointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetail, error) {
	r.mu.Lock()
	matched := make([]*model.Appointment, 0)
	today := time.Now().Format(model.DateLayout)
	for _, s := range r.slots {
		if filters != nil {
			if filters.PatientID != uuid.Nil && (s.PatientID == nil || *s.PatientID != filters.PatientID) {
				continue
			}
			if filters.DoctorID != uuid.Nil && s.DoctorID != filters.DoctorID {
				continue
			}
			if filters.Status != "" && s.Status != filters.Status {
				continue
			}
			if filters.Date != "" && s.Date != filters.Date {
				continue
			}
			if filters.Past != nil {
				if *filters.Past && s.Date >= today {
					continue
				}
				if !*filters.Past && s.Date < today {
					continue
				}
			}
		}
		clone := *s
		matched = append(matched, &clone)
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date > matched[j].Date
		}
		return matched[i].Time < matched[j].Time
	})
	if filters != nil && filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}

	out := make([]*model.AppointmentDetail, 0, len(matched))
	for _, s := range matched {
		out = append(out, r.hydrate(ctx, s))
	}
	return out, nil
}

func (r *AppointmentRepository) ListUpcoming(ctx context.Context, patientID, doctorID uuid.UUID, from, to string, limit int) ([]*model.AppointmentDetail, error) {
	r.mu.Lock()
	matched := make([]*model.Appointment, 0)
	for _, s := range r.slots {
		if s.Status != model.AppointmentStatusHeld || s.Date < from || s.Date > to {
			continue
		}
		if patientID != uuid.Nil && (s.PatientID == nil || *s.PatientID != patientID) {
			continue
		}
		if doctorID != uuid.Nil && s.DoctorID != doctorID {
			continue
		}
		clone := *s
		matched = append(matched, &clone)
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date < matched[j].Date
		}
		return matched[i].Time < matched[j].Time
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*model.AppointmentDetail, 0, len(matched))
	for _, s := range matched {
		out = append(out, r.hydrate(ctx, s))
	}
	return out, nil
}

func (r *AppointmentRepository) ListPast(ctx context.Context, patientID, doctorID uuid.UUID, before string, limit int) ([]*model.AppointmentDetail, error) {
	r.mu.Lock()
	matched := make([]*model.Appointment, 0)
	for _, s := range r.slots {
		if s.Date >= before || s.Status == model.AppointmentStatusFree {
			continue
		}
		if patientID != uuid.Nil && (s.PatientID == nil || *s.PatientID != patientID) {
			continue
		}
		if doctorID != uuid.Nil && s.DoctorID != doctorID {
			continue
		}
		clone := *s
		matched = append(matched, &clone)
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date > matched[j].Date
		}
		return matched[i].Time < matched[j].Time
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*model.AppointmentDetail, 0, len(matched))
	for _, s := range matched {
		out = append(out, r.hydrate(ctx, s))
	}
	return out, nil
}

// OutboxRepository collects events in memory.
type OutboxRepository struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()
	clone := *event
	r.events = append(r.events, &clone)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.OutboxEvent
	for _, e := range r.events {
		if e.Status != model.OutboxStatusPending {
			continue
		}
		clone := *e
		out = append(out, &clone)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkProcessed(_ context.Context, id uuid.UUID) error {
	return r.setStatus(id, model.OutboxStatusProcessed)
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id uuid.UUID) error {
	return r.setStatus(id, model.OutboxStatusFailed)
}

func (r *OutboxRepository) setStatus(id uuid.UUID, status model.OutboxStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events {
		if e.ID == id {
			e.Status = status
			if status == model.OutboxStatusProcessed {
				now := time.Now()
				e.ProcessedAt = &now
			}
			return nil
		}
	}
	return apperrors.NotFound("outbox event")
}

// Events returns a snapshot of everything recorded, newest last.
func (r *OutboxRepository) Events() []*model.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.OutboxEvent, 0, len(r.events))
	for _, e := range r.events {
		clone := *e
		out = append(out, &clone)
	}
	return out
}

var (
	_ repository.AppointmentRepository = (*AppointmentRepository)(nil)
	_ repository.PatientRepository     = (*PatientRepository)(nil)
	_ repository.DoctorRepository      = (*DoctorRepository)(nil)
	_ repository.OutboxRepository      = (*OutboxRepository)(nil)
)
