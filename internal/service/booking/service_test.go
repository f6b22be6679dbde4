package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/booking-api/internal/model"
	"github.com/medibook/booking-api/internal/repository/memory"
	apperrors "github.com/medibook/booking-api/pkg/errors"
)

type fixture struct {
	svc      *Service
	appts    *memory.AppointmentRepository
	patients *memory.PatientRepository
	doctors  *memory.DoctorRepository
	outbox   *memory.OutboxRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	patients := memory.NewPatientRepository()
	doctors := memory.NewDoctorRepository()
	appts := memory.NewAppointmentRepository(patients, doctors)
	outbox := memory.NewOutboxRepository()
	return &fixture{
		svc:      NewService(appts, doctors, patients, outbox, nil),
		appts:    appts,
		patients: patients,
		doctors:  doctors,
		outbox:   outbox,
	}
}

func (f *fixture) addDoctor(t *testing.T, av *model.WeeklyAvailability) *model.Doctor {
	t.Helper()
	doc := &model.Doctor{
		Name:           "Dr. Reyes",
		Email:          uuid.NewString() + "@clinic.test",
		Specialization: "cardiology",
		Availability:   av,
	}
	require.NoError(t, f.doctors.Create(context.Background(), doc))
	return doc
}

func (f *fixture) addPatient(t *testing.T) *model.Patient {
	t.Helper()
	p := &model.Patient{
		Name:  "Alex Moreno",
		Email: uuid.NewString() + "@example.test",
	}
	require.NoError(t, f.patients.Create(context.Background(), p))
	return p
}

func dateFromNow(days int) string {
	return time.Now().AddDate(0, 0, days).Format(model.DateLayout)
}

func TestEnsureSlotsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, &model.WeeklyAvailability{SlotLength: 60})
	date := dateFromNow(2)

	require.NoError(t, f.svc.EnsureSlots(ctx, doc.ID, date))
	first, err := f.appts.ListSlots(ctx, doc.ID, date, true)
	require.NoError(t, err)
	// Default window 09:00-17:00 at 60 minutes.
	require.Len(t, first, 8)
	assert.Equal(t, "09:00", first[0].Time)
	assert.Equal(t, "16:00", first[len(first)-1].Time)

	require.NoError(t, f.svc.EnsureSlots(ctx, doc.ID, date))
	second, err := f.appts.ListSlots(ctx, doc.ID, date, true)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestEnsureSlotsUnknownDoctor(t *testing.T) {
	f := newFixture(t)
	err := f.svc.EnsureSlots(context.Background(), uuid.New(), dateFromNow(1))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestEnsureSlotsNeverDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, &model.WeeklyAvailability{SlotLength: 120})
	date := dateFromNow(3)

	// A slot outside the template survives materialization untouched.
	require.NoError(t, f.appts.InsertFreeSlots(ctx, doc.ID, date, []string{"07:15"}))
	require.NoError(t, f.svc.EnsureSlots(ctx, doc.ID, date))

	slots, err := f.appts.ListSlots(ctx, doc.ID, date, true)
	require.NoError(t, err)
	assert.Equal(t, "07:15", slots[0].Time)
}

func TestAvailabilityFiltersBooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, &model.WeeklyAvailability{SlotLength: 60})
	patient := f.addPatient(t)
	date := dateFromNow(2)

	_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: date, Time: "09:00",
	})
	require.NoError(t, err)

	free, err := f.svc.Availability(ctx, doc.ID, date, false)
	require.NoError(t, err)
	all, err := f.svc.Availability(ctx, doc.ID, date, true)
	require.NoError(t, err)

	assert.Len(t, all, len(free)+1)
	for _, s := range free {
		assert.Equal(t, model.AppointmentStatusFree, s.Status)
	}
}

func TestAvailabilityPastDate(t *testing.T) {
	f := newFixture(t)
	doc := f.addDoctor(t, nil)
	_, err := f.svc.Availability(context.Background(), doc.ID, dateFromNow(-1), false)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPastDate))
}

func TestBookOccupiesExactlyOneSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, &model.WeeklyAvailability{SlotLength: 30})
	patient := f.addPatient(t)
	date := dateFromNow(2)

	require.NoError(t, f.svc.EnsureSlots(ctx, doc.ID, date))

	detail, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: date, Time: "10:00",
	})
	require.NoError(t, err)
	require.NotNil(t, detail.PatientID)
	assert.Equal(t, patient.ID, *detail.PatientID)
	assert.Equal(t, model.AppointmentStatusHeld, detail.Status)
	require.NotNil(t, detail.PatientName)
	assert.Equal(t, patient.Name, *detail.PatientName)

	all, err := f.appts.ListSlots(ctx, doc.ID, date, true)
	require.NoError(t, err)
	var heldCount int
	for _, s := range all {
		if s.Status == model.AppointmentStatusHeld {
			heldCount++
			assert.Equal(t, "10:00", s.Time)
		}
	}
	assert.Equal(t, 1, heldCount)
}

func TestBookSlotAlreadyHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, nil)
	p1 := f.addPatient(t)
	p2 := f.addPatient(t)
	date := dateFromNow(2)

	_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: p1.ID, DoctorID: doc.ID, Date: date, Time: "09:30",
	})
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: p2.ID, DoctorID: doc.ID, Date: date, Time: "09:30",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrSlotUnavailable))
}

func TestBookUnmaterializedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, nil)
	patient := f.addPatient(t)
	date := dateFromNow(2)

	// No EnsureSlots call: booking an ad-hoc time creates the row held.
	detail, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: date, Time: "07:45",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusHeld, detail.Status)
	assert.Equal(t, "07:45", detail.Time)
}

func TestBookRejectsDoubleBookingAcrossDoctors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docA := f.addDoctor(t, nil)
	docB := f.addDoctor(t, nil)
	patient := f.addPatient(t)
	date := dateFromNow(2)

	_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: docA.ID, Date: date, Time: "09:00",
	})
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: docB.ID, Date: date, Time: "09:00",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPatientDoubleBooked))

	// A different time with the second doctor is fine.
	_, err = f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: docB.ID, Date: date, Time: "09:30",
	})
	assert.NoError(t, err)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, nil)
	patient := f.addPatient(t)

	_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: "not-a-date", Time: "09:00",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	_, err = f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: dateFromNow(1), Time: "9am",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	_, err = f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: dateFromNow(-1), Time: "09:00",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPastDate))

	_, err = f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: uuid.New(), DoctorID: doc.ID, Date: dateFromNow(1), Time: "09:00",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestCancelThenRebook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, nil)
	p1 := f.addPatient(t)
	p2 := f.addPatient(t)
	date := dateFromNow(2)

	detail, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: p1.ID, DoctorID: doc.ID, Date: date, Time: "11:00",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, detail.ID))

	freed, err := f.appts.Get(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusFree, freed.Status)
	assert.Nil(t, freed.PatientID)
	assert.Nil(t, freed.Notes)

	// Cancelling twice fails: the slot is no longer held.
	err = f.svc.Cancel(ctx, detail.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	// Another patient can take the freed slot.
	rebooked, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: p2.ID, DoctorID: doc.ID, Date: date, Time: "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, detail.ID, rebooked.ID)
	assert.Equal(t, p2.ID, *rebooked.PatientID)
}

func TestInvalidateDoctorDropsCachedTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, &model.WeeklyAvailability{SlotLength: 60})

	slots, err := f.svc.Availability(ctx, doc.ID, dateFromNow(2), false)
	require.NoError(t, err)
	require.Len(t, slots, 8)

	doc.Availability = &model.WeeklyAvailability{SlotLength: 120}
	require.NoError(t, f.doctors.Update(ctx, doc))
	f.svc.InvalidateDoctor(doc.ID)

	slots, err = f.svc.Availability(ctx, doc.ID, dateFromNow(3), false)
	require.NoError(t, err)
	assert.Len(t, slots, 4)
}

func TestCancelPastDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, nil)
	p := f.addPatient(t)
	date := dateFromNow(-1)

	// Seed a hold on yesterday directly; the booking path refuses past dates.
	require.NoError(t, f.appts.InsertFreeSlots(ctx, doc.ID, date, []string{"09:00"}))
	slots, err := f.appts.ListSlots(ctx, doc.ID, date, true)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	acquired, err := f.appts.AcquireSlot(ctx, slots[0].ID, p.ID, nil)
	require.NoError(t, err)
	require.True(t, acquired)

	err = f.svc.Cancel(ctx, slots[0].ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPastDate))
}

func TestCancelUnknownSlot(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Cancel(context.Background(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestRescheduleMovesHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, &model.WeeklyAvailability{SlotLength: 30})
	patient := f.addPatient(t)
	date := dateFromNow(2)
	notes := "follow-up"

	require.NoError(t, f.svc.EnsureSlots(ctx, doc.ID, date))
	booked, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: date, Time: "09:00", Notes: &notes,
	})
	require.NoError(t, err)

	newTime := "14:30"
	targetID, err := f.svc.Reschedule(ctx, booked.ID, &model.RescheduleAppointmentRequest{Time: &newTime})
	require.NoError(t, err)
	require.NotEqual(t, booked.ID, targetID)

	source, err := f.appts.Get(ctx, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusFree, source.Status)
	assert.Nil(t, source.PatientID)

	target, err := f.appts.Get(ctx, targetID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusHeld, target.Status)
	require.NotNil(t, target.PatientID)
	assert.Equal(t, patient.ID, *target.PatientID)
	require.NotNil(t, target.Notes)
	assert.Equal(t, notes, *target.Notes)
}

func TestRescheduleTargetTakenLeavesSourceHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, &model.WeeklyAvailability{SlotLength: 30})
	p1 := f.addPatient(t)
	p2 := f.addPatient(t)
	date := dateFromNow(2)

	require.NoError(t, f.svc.EnsureSlots(ctx, doc.ID, date))
	mine, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: p1.ID, DoctorID: doc.ID, Date: date, Time: "09:00",
	})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: p2.ID, DoctorID: doc.ID, Date: date, Time: "10:00",
	})
	require.NoError(t, err)

	taken := "10:00"
	_, err = f.svc.Reschedule(ctx, mine.ID, &model.RescheduleAppointmentRequest{Time: &taken})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrSlotUnavailable))

	// Source unchanged.
	source, err := f.appts.Get(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusHeld, source.Status)
	require.NotNil(t, source.PatientID)
	assert.Equal(t, p1.ID, *source.PatientID)
}

func TestRescheduleNeverAutoCreates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, nil)
	patient := f.addPatient(t)
	date := dateFromNow(2)

	booked, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: date, Time: "09:00",
	})
	require.NoError(t, err)

	// 06:00 was never materialized; unlike booking, reschedule refuses.
	missing := "06:00"
	_, err = f.svc.Reschedule(ctx, booked.ID, &model.RescheduleAppointmentRequest{Time: &missing})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrSlotUnavailable))
}

func TestRescheduleDoubleBookExcludesSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, &model.WeeklyAvailability{SlotLength: 30})
	patient := f.addPatient(t)
	date := dateFromNow(2)

	require.NoError(t, f.svc.EnsureSlots(ctx, doc.ID, date))
	booked, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: date, Time: "09:00",
	})
	require.NoError(t, err)

	// Moving to a different free time is allowed even though the patient
	// "holds" the source at the old time.
	newTime := "09:30"
	_, err = f.svc.Reschedule(ctx, booked.ID, &model.RescheduleAppointmentRequest{Time: &newTime})
	assert.NoError(t, err)
}

func TestReschedulePastDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, nil)
	patient := f.addPatient(t)

	booked, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: dateFromNow(2), Time: "09:00",
	})
	require.NoError(t, err)

	past := dateFromNow(-1)
	_, err = f.svc.Reschedule(ctx, booked.ID, &model.RescheduleAppointmentRequest{Date: &past})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPastDate))
}

func TestBookingEmitsOutboxEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, nil)
	patient := f.addPatient(t)
	date := dateFromNow(2)

	booked, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: date, Time: "09:00",
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, booked.ID))

	events := f.outbox.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventAppointmentBooked, events[0].EventType)
	assert.Equal(t, EventAppointmentCancelled, events[1].EventType)
}

func TestUpcomingAndPastLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDoctor(t, nil)
	patient := f.addPatient(t)

	_, err := f.svc.Book(ctx, &model.BookAppointmentRequest{
		PatientID: patient.ID, DoctorID: doc.ID, Date: dateFromNow(3), Time: "09:00",
	})
	require.NoError(t, err)

	upcoming, err := f.svc.ListUpcoming(ctx, patient.ID, uuid.Nil, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, dateFromNow(3), upcoming[0].Date)

	past, err := f.svc.ListPast(ctx, patient.ID, uuid.Nil, 0)
	require.NoError(t, err)
	assert.Empty(t, past)
}
