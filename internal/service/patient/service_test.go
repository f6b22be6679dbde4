package patient

import (
	"context"
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
	return NewService(patients, memory.NewAppointmentRepository(patients, doctors))
}

func TestRegisterTrimsAndValidates(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	p, err := svc.Register(ctx, &model.CreatePatientRequest{
		Name:  "  Rosa Delgado  ",
		Email: " rosa@example.test ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rosa Delgado", p.Name)
	assert.Equal(t, "rosa@example.test", p.Email)

	_, err = svc.Register(ctx, &model.CreatePatientRequest{Name: "   ", Email: "x@example.test"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	_, err = svc.Register(ctx, &model.CreatePatientRequest{Name: "No Email", Email: "  "})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	req := &model.CreatePatientRequest{Name: "Rosa Delgado", Email: "rosa@example.test"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestSearchRequiresTerm(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Search(ctx, "   ")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	_, err = svc.Register(ctx, &model.CreatePatientRequest{Name: "Rosa Delgado", Email: "rosa@example.test"})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "delgado")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestAppointmentsUnknownPatient(t *testing.T) {
	svc := newService()

	_, err := svc.Appointments(context.Background(), uuid.New(), "", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}
