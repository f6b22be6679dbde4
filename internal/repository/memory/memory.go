// Package memory holds in-memory repository implementations mirroring the
// postgres semantics, used by service tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/booking-api/internal/model"
	apperrors "github.com/medibook/booking-api/pkg/errors"
)

type PatientRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*model.Patient
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{patients: make(map[uuid.UUID]*model.Patient)}
}

func (r *PatientRepository) Create(_ context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.patients {
		if p.Email == patient.Email {
			return apperrors.Conflict("email already exists")
		}
	}

	patient.ID = uuid.New()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt
	clone := *patient
	r.patients[patient.ID] = &clone
	return nil
}

func (r *PatientRepository) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient")
	}
	clone := *p
	return &clone, nil
}

func (r *PatientRepository) GetByEmail(_ context.Context, email string) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if p.Email == email {
			clone := *p
			return &clone, nil
		}
	}
	return nil, apperrors.NotFound("patient")
}

func (r *PatientRepository) Update(_ context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[patient.ID]; !ok {
		return apperrors.NotFound("patient")
	}
	patient.UpdatedAt = time.Now()
	clone := *patient
	r.patients[patient.ID] = &clone
	return nil
}

func (r *PatientRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return apperrors.NotFound("patient")
	}
	delete(r.patients, id)
	return nil
}

func (r *PatientRepository) List(_ context.Context) ([]*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Patient, 0, len(r.patients))
	for _, p := range r.patients {
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *PatientRepository) Search(_ context.Context, term string) ([]*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term = strings.ToLower(term)
	var out []*model.Patient
	for _, p := range r.patients {
		if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Email), term) {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type DoctorRepository struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]*model.Doctor
}

func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{doctors: make(map[uuid.UUID]*model.Doctor)}
}

func (r *DoctorRepository) Create(_ context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.doctors {
		if d.Email == doctor.Email {
			return apperrors.Conflict("email already exists")
		}
	}

	doctor.ID = uuid.New()
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = doctor.CreatedAt
	clone := *doctor
	r.doctors[doctor.ID] = &clone
	return nil
}

func (r *DoctorRepository) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, apperrors.NotFound("doctor")
	}
	clone := *d
	return &clone, nil
}

func (r *DoctorRepository) Update(_ context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[doctor.ID]; !ok {
		return apperrors.NotFound("doctor")
	}
	doctor.UpdatedAt = time.Now()
	clone := *doctor
	r.doctors[doctor.ID] = &clone
	return nil
}

func (r *DoctorRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[id]; !ok {
		return apperrors.NotFound("doctor")
	}
	delete(r.doctors, id)
	return nil
}

func (r *DoctorRepository) List(_ context.Context) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		clone := *d
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *DoctorRepository) ListBySpecialization(_ context.Context, specialization string) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Doctor
	for _, d := range r.doctors {
		if d.Specialization == specialization {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
