package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/medibook/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByEmail(ctx context.Context, email string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Patient, error)
		Search(ctx context.Context, term string) ([]*model.Patient, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Doctor, error)
		ListBySpecialization(ctx context.Context, specialization string) ([]*model.Doctor, error)
	}

	// AppointmentRepository owns slot rows. Writes that transition status are
	// conditional updates so concurrent bookers cannot both win.
	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error)
		GetByDoctorDateTime(ctx context.Context, doctorID uuid.UUID, date, timeOfDay string) (*model.Appointment, error)

		// ListTimes returns the slot times already persisted for a doctor and
		// date, for materialization set difference.
		ListTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)

		// InsertFreeSlots inserts one free slot per time; times already
		// persisted for (doctor, date) are skipped, so racing materializers
		// never fail.
		InsertFreeSlots(ctx context.Context, doctorID uuid.UUID, date string, times []string) error

		// InsertHeld creates a held slot directly, for booking a time the
		// template never materialized.
		InsertHeld(ctx context.Context, appt *model.Appointment) error

		// AcquireSlot transitions free -> held for the patient. Returns false
		// when the slot was not free at write time.
		AcquireSlot(ctx context.Context, slotID, patientID uuid.UUID, notes *string) (bool, error)

		// ReleaseSlot transitions held -> free and clears patient and notes.
		// Returns false when the slot was not held at write time.
		ReleaseSlot(ctx context.Context, slotID uuid.UUID) (bool, error)

		// Reschedule acquires the target (free -> held) and releases the
		// source (held -> free) in one transaction; target first, so nothing
		// changes when the target is taken.
		Reschedule(ctx context.Context, sourceID, targetID, patientID uuid.UUID, notes *string) error

		// PatientHeldAt reports whether the patient holds any slot at the
		// given date and time across all doctors, optionally excluding one
		// slot id.
		PatientHeldAt(ctx context.Context, patientID uuid.UUID, date, timeOfDay string, excludeID *uuid.UUID) (bool, error)

		ListSlots(ctx context.Context, doctorID uuid.UUID, date string, includeBooked bool) ([]*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetail, error)
		ListUpcoming(ctx context.Context, patientID, doctorID uuid.UUID, from, to string, limit int) ([]*model.AppointmentDetail, error)
		ListPast(ctx context.Context, patientID, doctorID uuid.UUID, before string, limit int) ([]*model.AppointmentDetail, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		ListPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID) error
	}
)
