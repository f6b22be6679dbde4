package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/booking-api/internal/model"
	apperrors "github.com/medibook/booking-api/pkg/errors"
)

const appointmentDetailColumns = `
		a.id, a.patient_id, a.doctor_id, a.slot_date, a.slot_time,
		a.status, a.notes, a.created_at, a.updated_at,
		p.name AS patient_name,
		p.email AS patient_email,
		p.phone AS patient_phone,
		d.name AS doctor_name,
		d.specialization AS doctor_specialization,
		d.email AS doctor_email,
		d.phone AS doctor_phone`

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, slot_date, slot_time, status, notes, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	query := `
		SELECT ` + appointmentDetailColumns + `
		FROM appointments a
		LEFT JOIN patients p ON a.patient_id = p.id
		LEFT JOIN doctors d ON a.doctor_id = d.id
		WHERE a.id = $1
	`
	var detail model.AppointmentDetail
	err := r.db.GetContext(ctx, &detail, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment detail: %w", err)
	}
	return &detail, nil
}

func (r *appointmentRepository) GetByDoctorDateTime(ctx context.Context, doctorID uuid.UUID, date, timeOfDay string) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, slot_date, slot_time, status, notes, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
	`
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, doctorID, date, timeOfDay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment by slot: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) ListTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	query := `
		SELECT slot_time FROM appointments
		WHERE doctor_id = $1 AND slot_date = $2
	`
	var times []string
	if err := r.db.SelectContext(ctx, &times, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list slot times: %w", err)
	}
	return times, nil
}

func (r *appointmentRepository) InsertFreeSlots(ctx context.Context, doctorID uuid.UUID, date string, times []string) error {
	if len(times) == 0 {
		return nil
	}

	// ON CONFLICT DO NOTHING keeps racing materializers from erroring when
	// both observed the same missing time.
	query := `
		INSERT INTO appointments (id, patient_id, doctor_id, slot_date, slot_time, status, notes, created_at, updated_at)
		VALUES ($1, NULL, $2, $3, $4, 'free', NULL, $5, $5)
		ON CONFLICT (doctor_id, slot_date, slot_time) DO NOTHING
	`
	now := time.Now()
	for _, t := range times {
		if _, err := r.db.ExecContext(ctx, query, uuid.New(), doctorID, date, t, now); err != nil {
			return fmt.Errorf("failed to insert free slot %s %s: %w", date, t, err)
		}
	}
	return nil
}

func (r *appointmentRepository) InsertHeld(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, patient_id, doctor_id, slot_date, slot_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'held', $6, $7, $7)
		ON CONFLICT (doctor_id, slot_date, slot_time) DO NOTHING
	`
	appt.ID = uuid.New()
	appt.Status = model.AppointmentStatusHeld
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt

	result, err := r.db.ExecContext(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.DoctorID,
		appt.Date,
		appt.Time,
		appt.Notes,
		appt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert held slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// A concurrent writer materialized or booked this slot first.
		return apperrors.SlotUnavailable("selected time slot is not available")
	}
	return nil
}

func (r *appointmentRepository) AcquireSlot(ctx context.Context, slotID, patientID uuid.UUID, notes *string) (bool, error) {
	// Conditional update instead of read-then-write: zero rows affected means
	// someone else holds the slot.
	query := `
		UPDATE appointments
		SET patient_id = $1, status = 'held', notes = $2, updated_at = $3
		WHERE id = $4 AND status = 'free'
	`
	result, err := r.db.ExecContext(ctx, query, patientID, notes, time.Now(), slotID)
	if err != nil {
		return false, fmt.Errorf("failed to acquire slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *appointmentRepository) ReleaseSlot(ctx context.Context, slotID uuid.UUID) (bool, error) {
	query := `
		UPDATE appointments
		SET patient_id = NULL, status = 'free', notes = NULL, updated_at = $1
		WHERE id = $2 AND status = 'held'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), slotID)
	if err != nil {
		return false, fmt.Errorf("failed to release slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *appointmentRepository) Reschedule(ctx context.Context, sourceID, targetID, patientID uuid.UUID, notes *string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reschedule: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	// Target first: if it is no longer free nothing has changed yet.
	result, err := tx.ExecContext(ctx, `
		UPDATE appointments
		SET patient_id = $1, status = 'held', notes = $2, updated_at = $3
		WHERE id = $4 AND status = 'free'
	`, patientID, notes, now, targetID)
	if err != nil {
		return fmt.Errorf("failed to acquire target slot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.SlotUnavailable("new time slot is not available")
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE appointments
		SET patient_id = NULL, status = 'free', notes = NULL, updated_at = $1
		WHERE id = $2 AND status = 'held'
	`, now, sourceID)
	if err != nil {
		return fmt.Errorf("failed to release source slot: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.InvalidState("appointment is no longer booked")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reschedule: %w", err)
	}
	return nil
}

func (r *appointmentRepository) PatientHeldAt(ctx context.Context, patientID uuid.UUID, date, timeOfDay string, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1
			AND slot_date = $2
			AND slot_time = $3
			AND status = 'held'
	`
	args := []interface{}{patientID, date, timeOfDay}

	if excludeID != nil {
		query += " AND id != $4"
		args = append(args, *excludeID)
	}

	query += ")"

	var held bool
	if err := r.db.GetContext(ctx, &held, query, args...); err != nil {
		return false, fmt.Errorf("failed to check patient bookings: %w", err)
	}
	return held, nil
}

func (r *appointmentRepository) ListSlots(ctx context.Context, doctorID uuid.UUID, date string, includeBooked bool) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, slot_date, slot_time, status, notes, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1 AND slot_date = $2
	`
	if !includeBooked {
		query += " AND status = 'free'"
	}
	query += " ORDER BY slot_time ASC"

	var slots []*model.Appointment
	if err := r.db.SelectContext(ctx, &slots, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentDetail, error) {
	query := `
		SELECT ` + appointmentDetailColumns + `
		FROM appointments a
		LEFT JOIN patients p ON a.patient_id = p.id
		LEFT JOIN doctors d ON a.doctor_id = d.id
		WHERE 1=1
	`
	var args []interface{}
	argCount := 1

	if filters != nil {
		if filters.PatientID != uuid.Nil {
			query += fmt.Sprintf(" AND a.patient_id = $%d", argCount)
			args = append(args, filters.PatientID)
			argCount++
		}
		if filters.DoctorID != uuid.Nil {
			query += fmt.Sprintf(" AND a.doctor_id = $%d", argCount)
			args = append(args, filters.DoctorID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND a.status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if filters.Date != "" {
			query += fmt.Sprintf(" AND a.slot_date = $%d", argCount)
			args = append(args, filters.Date)
			argCount++
		}
		if filters.Past != nil {
			today := time.Now().Format(model.DateLayout)
			if *filters.Past {
				query += fmt.Sprintf(" AND a.slot_date < $%d", argCount)
			} else {
				query += fmt.Sprintf(" AND a.slot_date >= $%d", argCount)
			}
			args = append(args, today)
			argCount++
		}
	}

	query += " ORDER BY a.slot_date DESC, a.slot_time ASC"

	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filters.Limit)
	}

	var appointments []*model.AppointmentDetail
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListUpcoming(ctx context.Context, patientID, doctorID uuid.UUID, from, to string, limit int) ([]*model.AppointmentDetail, error) {
	query := `
		SELECT ` + appointmentDetailColumns + `
		FROM appointments a
		LEFT JOIN patients p ON a.patient_id = p.id
		LEFT JOIN doctors d ON a.doctor_id = d.id
		WHERE a.slot_date BETWEEN $1 AND $2 AND a.status = 'held'
	`
	args := []interface{}{from, to}
	argCount := 3

	if patientID != uuid.Nil {
		query += fmt.Sprintf(" AND a.patient_id = $%d", argCount)
		args = append(args, patientID)
		argCount++
	}
	if doctorID != uuid.Nil {
		query += fmt.Sprintf(" AND a.doctor_id = $%d", argCount)
		args = append(args, doctorID)
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY a.slot_date ASC, a.slot_time ASC LIMIT $%d", argCount)
	args = append(args, limit)

	var appointments []*model.AppointmentDetail
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListPast(ctx context.Context, patientID, doctorID uuid.UUID, before string, limit int) ([]*model.AppointmentDetail, error) {
	query := `
		SELECT ` + appointmentDetailColumns + `
		FROM appointments a
		LEFT JOIN patients p ON a.patient_id = p.id
		LEFT JOIN doctors d ON a.doctor_id = d.id
		WHERE a.slot_date < $1 AND a.status IN ('held', 'completed', 'cancelled')
	`
	args := []interface{}{before}
	argCount := 2

	if patientID != uuid.Nil {
		query += fmt.Sprintf(" AND a.patient_id = $%d", argCount)
		args = append(args, patientID)
		argCount++
	}
	if doctorID != uuid.Nil {
		query += fmt.Sprintf(" AND a.doctor_id = $%d", argCount)
		args = append(args, doctorID)
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY a.slot_date DESC, a.slot_time ASC LIMIT $%d", argCount)
	args = append(args, limit)

	var appointments []*model.AppointmentDetail
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list past appointments: %w", err)
	}
	return appointments, nil
}
