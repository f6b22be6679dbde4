package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DayWindow is an open interval of a working day, "HH:MM" inclusive start,
// exclusive end.
type DayWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyAvailability is a doctor's recurring weekly template. Days maps
// lowercase weekday abbreviations ("sun".."sat") to open windows; a missing
// key means the doctor has no configured hours that day. SlotLength is the
// shared step in minutes across all open days.
type WeeklyAvailability struct {
	Days       map[string]DayWindow
	SlotLength int
}

// WeekdayKeys index matches time.Weekday (0=Sunday).
var WeekdayKeys = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// MarshalJSON flattens the template into a single object mixing day keys with
// the slotLength field, the shape the doctors table stores.
func (w WeeklyAvailability) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(w.Days)+1)
	for day, win := range w.Days {
		out[day] = win
	}
	if w.SlotLength > 0 {
		out["slotLength"] = w.SlotLength
	}
	return json.Marshal(out)
}

func (w *WeeklyAvailability) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	w.Days = make(map[string]DayWindow)
	w.SlotLength = 0

	for key, val := range raw {
		if key == "slotLength" {
			if err := json.Unmarshal(val, &w.SlotLength); err != nil {
				return fmt.Errorf("invalid slotLength: %w", err)
			}
			continue
		}
		var win DayWindow
		if err := json.Unmarshal(val, &win); err != nil {
			return fmt.Errorf("invalid window for %q: %w", key, err)
		}
		w.Days[key] = win
	}
	return nil
}

// Value implements driver.Valuer so the template can be stored as jsonb.
func (w WeeklyAvailability) Value() (driver.Value, error) {
	return json.Marshal(w)
}

// Scan implements sql.Scanner. NULL scans to an empty template.
func (w *WeeklyAvailability) Scan(src interface{}) error {
	if src == nil {
		*w = WeeklyAvailability{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	default:
		return fmt.Errorf("cannot scan %T into WeeklyAvailability", src)
	}
}

type Doctor struct {
	Base
	Name            string              `db:"name" json:"name"`
	Email           string              `db:"email" json:"email"`
	Phone           *string             `db:"phone" json:"phone,omitempty"`
	Specialization  string              `db:"specialization" json:"specialization"`
	ExperienceYears int                 `db:"experience_years" json:"experience_years"`
	Availability    *WeeklyAvailability `db:"availability" json:"availability,omitempty"`
}

type CreateDoctorRequest struct {
	Name            string              `json:"name" binding:"required"`
	Email           string              `json:"email" binding:"required,email"`
	Phone           *string             `json:"phone"`
	Specialization  string              `json:"specialization" binding:"required"`
	ExperienceYears int                 `json:"experience_years"`
	Availability    *WeeklyAvailability `json:"availability"`
}

type UpdateDoctorRequest struct {
	Name            *string             `json:"name"`
	Email           *string             `json:"email" binding:"omitempty,email"`
	Phone           *string             `json:"phone"`
	Specialization  *string             `json:"specialization"`
	ExperienceYears *int                `json:"experience_years"`
	Availability    *WeeklyAvailability `json:"availability"`
}
