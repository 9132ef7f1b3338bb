package user

import (
	"time"

	"github.com/google/uuid"
)

type NewParams struct {
	MobileNumber string
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	District     string
	State        string
	Pincode      string
	BatchName    string
	Subjects     []string
}

func New(p NewParams) User {
	now := time.Now().UTC()

	role := p.Role

	if role == "" {
		role = "student"
	}

	subjects := p.Subjects

	if subjects == nil {
		subjects = []string{}
	}

	return User{
		ID:           uuid.NewString(),
		MobileNumber: p.MobileNumber,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		FullName:     p.FullName,
		Role:         role,
		District:     p.District,
		State:        p.State,
		Pincode:      p.Pincode,
		BatchName:    p.BatchName,
		Subjects:     subjects,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
