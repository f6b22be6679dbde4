package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/medibook/booking-api/internal/config"
	"github.com/medibook/booking-api/internal/model"
	"github.com/medibook/booking-api/internal/repository/postgres"
)

var specializations = []string{
	"Cardiology",
	"Dermatology",
	"General Medicine",
	"Neurology",
	"Orthopedics",
	"Pediatrics",
}

func main() {
	doctors := flag.Int("doctors", 10, "number of doctors to create")
	patients := flag.Int("patients", 50, "number of patients to create")
	seed := flag.Uint64("seed", 0, "faker seed, 0 means random")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := postgres.Bootstrap(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap schema")
	}

	faker := gofakeit.New(*seed)

	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)

	for i := 0; i < *doctors; i++ {
		doctor := &model.Doctor{
			Name:            "Dr. " + faker.Name(),
			Email:           faker.Email(),
			Phone:           ptr(faker.Phone()),
			Specialization:  specializations[faker.IntRange(0, len(specializations)-1)],
			ExperienceYears: faker.IntRange(1, 35),
			Availability:    randomAvailability(faker),
		}
		if err := doctorRepo.Create(ctx, doctor); err != nil {
			log.Error().Err(err).Str("email", doctor.Email).Msg("failed to create doctor")
			continue
		}
		log.Info().Str("id", doctor.ID.String()).Str("name", doctor.Name).Msg("created doctor")
	}

	for i := 0; i < *patients; i++ {
		now := time.Now()
		dob := faker.DateRange(now.AddDate(-70, 0, 0), now.AddDate(-18, 0, 0)).Format(model.DateLayout)

		patient := &model.Patient{
			Name:        faker.Name(),
			Email:       faker.Email(),
			Phone:       ptr(faker.Phone()),
			DateOfBirth: &dob,
			Address:     ptr(fakeAddress(faker)),
		}
		if err := patientRepo.Create(ctx, patient); err != nil {
			log.Error().Err(err).Str("email", patient.Email).Msg("failed to create patient")
			continue
		}
		log.Info().Str("id", patient.ID.String()).Str("name", patient.Name).Msg("created patient")
	}

	log.Info().Int("doctors", *doctors).Int("patients", *patients).Msg("seed complete")
}

// randomAvailability builds a plausible weekly template: weekdays always
// configured, weekend days sometimes, slot length 15, 30, or 60 minutes.
func randomAvailability(faker *gofakeit.Faker) *model.WeeklyAvailability {
	starts := []string{"08:00", "08:30", "09:00", "10:00"}
	ends := []string{"16:00", "17:00", "17:30", "18:00"}
	lengths := []int{15, 30, 60}

	days := make(map[string]model.DayWindow)
	for _, day := range []string{"mon", "tue", "wed", "thu", "fri"} {
		days[day] = model.DayWindow{
			Start: starts[faker.IntRange(0, len(starts)-1)],
			End:   ends[faker.IntRange(0, len(ends)-1)],
		}
	}
	if faker.Bool() {
		days["sat"] = model.DayWindow{Start: "09:00", End: "13:00"}
	}

	return &model.WeeklyAvailability{
		Days:       days,
		SlotLength: lengths[faker.IntRange(0, len(lengths)-1)],
	}
}

func fakeAddress(faker *gofakeit.Faker) string {
	addr := faker.Address()
	return strings.TrimSpace(fmt.Sprintf("%s, %s, %s %s", addr.Street, addr.City, addr.State, addr.Zip))
}

func ptr(s string) *string {
	return &s
}
