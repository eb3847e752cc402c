package model

import "time"

type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	HouseholdCode string    `json:"flat_code"`
	Karma         int       `json:"karma_points"`
	BestFlatmate  bool      `json:"best_flatmate_badge"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
