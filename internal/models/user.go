package models

import "time"

const DefaultUserRole = "public"

type User struct {
	ID               uint64     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	Role             string     `json:"role"`
	ResetToken       *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}

type UserCreateInput struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}
