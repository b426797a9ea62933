package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	City         string    `json:"city"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}
