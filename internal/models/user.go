package models

import "time"

type User struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Age          int           `json:"age"`
	GoogleSub    *string       `json:"-"`
	Images       []ImageRecord `json:"images,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
