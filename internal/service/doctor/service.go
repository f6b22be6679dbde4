package doctor

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medibook/booking-api/internal/model"
	"github.com/medibook/booking-api/internal/repository"
	"github.com/medibook/booking-api/internal/schedule"
	apperrors "github.com/medibook/booking-api/pkg/errors"
)

type Service struct {
	repo            repository.DoctorRepository
	appointmentRepo repository.AppointmentRepository
	invalidate      func(uuid.UUID)
}

// NewService wires doctor management. invalidate is called after a doctor
// changes so cached copies elsewhere are dropped; it may be nil.
func NewService(repo repository.DoctorRepository, appointmentRepo repository.AppointmentRepository, invalidate func(uuid.UUID)) *Service {
	return &Service{repo: repo, appointmentRepo: appointmentRepo, invalidate: invalidate}
}

func (s *Service) invalidated(id uuid.UUID) {
	if s.invalidate != nil {
		s.invalidate(id)
	}
}

// validateTemplate rejects templates whose configured windows or step could
// never expand. Missing days and missing slotLength are fine; those fall
// back to defaults at expansion time.
func validateTemplate(av *model.WeeklyAvailability) error {
	if av == nil {
		return nil
	}
	if av.SlotLength < 0 {
		return apperrors.Validation("slotLength must be positive")
	}
	for day, win := range av.Days {
		valid := false
		for _, key := range model.WeekdayKeys {
			if day == key {
				valid = true
				break
			}
		}
		if !valid {
			return apperrors.Validation("unknown weekday key: " + day)
		}
		if win.Start != "" {
			if _, err := schedule.ParseClock(win.Start); err != nil {
				return apperrors.Validation("invalid start time for " + day)
			}
		}
		if win.End != "" {
			if _, err := schedule.ParseClock(win.End); err != nil {
				return apperrors.Validation("invalid end time for " + day)
			}
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	if err := validateTemplate(req.Availability); err != nil {
		return nil, err
	}

	doctor := &model.Doctor{
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Phone:           req.Phone,
		Specialization:  req.Specialization,
		ExperienceYears: req.ExperienceYears,
		Availability:    req.Availability,
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		doctor.Name = *req.Name
	}
	if req.Email != nil {
		doctor.Email = *req.Email
	}
	if req.Phone != nil {
		doctor.Phone = req.Phone
	}
	if req.Specialization != nil {
		doctor.Specialization = *req.Specialization
	}
	if req.ExperienceYears != nil {
		doctor.ExperienceYears = *req.ExperienceYears
	}
	if req.Availability != nil {
		if err := validateTemplate(req.Availability); err != nil {
			return nil, err
		}
		doctor.Availability = req.Availability
	}

	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, err
	}
	s.invalidated(id)
	return doctor, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidated(id)
	return nil
}

func (s *Service) List(ctx context.Context) ([]*model.Doctor, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListBySpecialization(ctx context.Context, specialization string) ([]*model.Doctor, error) {
	return s.repo.ListBySpecialization(ctx, specialization)
}

// Appointments lists a doctor's slots, optionally filtered by status and
// date.
func (s *Service) Appointments(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, date string) ([]*model.AppointmentDetail, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.appointmentRepo.List(ctx, &model.AppointmentFilters{
		DoctorID: id,
		Status:   status,
		Date:     date,
	})
}
