package doctor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/booking-api/internal/model"
	"github.com/medibook/booking-api/internal/repository/memory"
	apperrors "github.com/medibook/booking-api/pkg/errors"
)

func newService() *Service {
	patients := memory.NewPatientRepository()
	doctors := memory.NewDoctorRepository()
	return NewService(doctors, memory.NewAppointmentRepository(patients, doctors), nil)
}

func TestCreateValidatesTemplate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cases := []struct {
		name string
		av   *model.WeeklyAvailability
	}{
		{"negative slot length", &model.WeeklyAvailability{SlotLength: -30}},
		{"unknown weekday", &model.WeeklyAvailability{
			Days: map[string]model.DayWindow{"monday": {Start: "09:00", End: "17:00"}},
		}},
		{"bad start clock", &model.WeeklyAvailability{
			Days: map[string]model.DayWindow{"mon": {Start: "9am", End: "17:00"}},
		}},
		{"bad end clock", &model.WeeklyAvailability{
			Days: map[string]model.DayWindow{"mon": {Start: "09:00", End: "25:00"}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, &model.CreateDoctorRequest{
				Name:           "Dr. Vance",
				Email:          "vance@clinic.test",
				Specialization: "neurology",
				Availability:   tc.av,
			})
			assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
		})
	}
}

func TestCreateAcceptsNilAndPartialTemplates(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	doc, err := svc.Create(ctx, &model.CreateDoctorRequest{
		Name:           "Dr. Vance",
		Email:          "vance@clinic.test",
		Specialization: "neurology",
	})
	require.NoError(t, err)
	assert.Nil(t, doc.Availability)

	doc, err = svc.Create(ctx, &model.CreateDoctorRequest{
		Name:           "Dr. Chen",
		Email:          "chen@clinic.test",
		Specialization: "cardiology",
		Availability: &model.WeeklyAvailability{
			Days:       map[string]model.DayWindow{"mon": {Start: "10:00", End: "14:00"}},
			SlotLength: 20,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, doc.Availability)
	assert.Equal(t, 20, doc.Availability.SlotLength)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	req := &model.CreateDoctorRequest{
		Name:           "Dr. Vance",
		Email:          "vance@clinic.test",
		Specialization: "neurology",
	}
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestUpdateRevalidatesTemplate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	doc, err := svc.Create(ctx, &model.CreateDoctorRequest{
		Name:           "Dr. Vance",
		Email:          "vance@clinic.test",
		Specialization: "neurology",
	})
	require.NoError(t, err)

	bad := &model.WeeklyAvailability{SlotLength: -1}
	_, err = svc.Update(ctx, doc.ID, &model.UpdateDoctorRequest{Availability: bad})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestListBySpecialization(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for i, spec := range []string{"neurology", "cardiology", "neurology"} {
		_, err := svc.Create(ctx, &model.CreateDoctorRequest{
			Name:           "Dr. " + spec,
			Email:          fmt.Sprintf("doc%d@clinic.test", i),
			Specialization: spec,
		})
		require.NoError(t, err)
	}

	neuro, err := svc.ListBySpecialization(ctx, "neurology")
	require.NoError(t, err)
	assert.Len(t, neuro, 2)
}

func TestUpdateAndDeleteNotifyInvalidation(t *testing.T) {
	patients := memory.NewPatientRepository()
	doctors := memory.NewDoctorRepository()
	var dropped []uuid.UUID
	svc := NewService(doctors, memory.NewAppointmentRepository(patients, doctors), func(id uuid.UUID) {
		dropped = append(dropped, id)
	})
	ctx := context.Background()

	doc, err := svc.Create(ctx, &model.CreateDoctorRequest{
		Name:           "Dr. Okafor",
		Email:          "okafor@clinic.test",
		Specialization: "dermatology",
	})
	require.NoError(t, err)

	name := "Dr. A. Okafor"
	_, err = svc.Update(ctx, doc.ID, &model.UpdateDoctorRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{doc.ID}, dropped)

	require.NoError(t, svc.Delete(ctx, doc.ID))
	assert.Equal(t, []uuid.UUID{doc.ID, doc.ID}, dropped)
}
