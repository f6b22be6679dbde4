package model

import (
	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	// AppointmentStatusFree marks a materialized, bookable slot.
	AppointmentStatusFree AppointmentStatus = "free"
	// AppointmentStatusHeld marks a slot assigned to a patient.
	AppointmentStatusHeld AppointmentStatus = "held"
	// Terminal states. The booking flow never writes these: cancellation
	// returns a slot to free so it is immediately rebookable. They exist for
	// back-office paths that close out historical slots.
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Appointment is one addressable (doctor, date, time) slot. PatientID is set
// exactly when Status is held.
type Appointment struct {
	Base
	PatientID *uuid.UUID        `db:"patient_id" json:"patient_id,omitempty"`
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Date      string            `db:"slot_date" json:"date"`
	Time      string            `db:"slot_time" json:"time"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Notes     *string           `db:"notes" json:"notes,omitempty"`
}

// AppointmentDetail joins denormalized patient and doctor display fields onto
// a slot for read responses.
type AppointmentDetail struct {
	Appointment
	PatientName          *string `db:"patient_name" json:"patient_name,omitempty"`
	PatientEmail         *string `db:"patient_email" json:"patient_email,omitempty"`
	PatientPhone         *string `db:"patient_phone" json:"patient_phone,omitempty"`
	DoctorName           *string `db:"doctor_name" json:"doctor_name,omitempty"`
	DoctorSpecialization *string `db:"doctor_specialization" json:"doctor_specialization,omitempty"`
	DoctorEmail          *string `db:"doctor_email" json:"doctor_email,omitempty"`
	DoctorPhone          *string `db:"doctor_phone" json:"doctor_phone,omitempty"`
}

type BookAppointmentRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	Date      string    `json:"date" binding:"required"`
	Time      string    `json:"time" binding:"required"`
	Notes     *string   `json:"notes"`
}

type RescheduleAppointmentRequest struct {
	DoctorID *uuid.UUID `json:"doctor_id"`
	Date     *string    `json:"date"`
	Time     *string    `json:"time"`
	Notes    *string    `json:"notes"`
}

// AppointmentFilters narrows list queries. Zero values mean "no filter".
type AppointmentFilters struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    AppointmentStatus
	Date      string
	// Past filters by date relative to today: nil means both.
	Past  *bool
	Limit int
}
