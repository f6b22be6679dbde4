package model

type Patient struct {
	Base
	Name        string  `db:"name" json:"name"`
	Email       string  `db:"email" json:"email"`
	Phone       *string `db:"phone" json:"phone,omitempty"`
	DateOfBirth *string `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address     *string `db:"address" json:"address,omitempty"`
}

type CreatePatientRequest struct {
	Name        string  `json:"name" binding:"required"`
	Email       string  `json:"email" binding:"required,email"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"`
	Address     *string `json:"address"`
}

type UpdatePatientRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"`
	Address     *string `json:"address"`
}
