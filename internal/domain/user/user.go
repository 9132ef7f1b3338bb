package user

import "time"

// User is an account on the classes platform. The mobile number is the
// login identifier; mobile number and email are both unique.
type User struct {
	ID           string    `json:"id"`
	MobileNumber string    `json:"mobile_number"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	District     string    `json:"district"`
	State        string    `json:"state"`
	Pincode      string    `json:"pincode"`
	BatchName    string    `json:"batch_name"`
	Subjects     []string  `json:"subjects"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public shape returned by the registration endpoint.
type Profile struct {
	MobileNumber string   `json:"mobile_number"`
	Email        string   `json:"email"`
	FullName     string   `json:"full_name"`
	Role         string   `json:"role"`
	District     string   `json:"district"`
	State        string   `json:"state"`
	Pincode      string   `json:"pincode"`
	BatchName    string   `json:"batch_name"`
	Subjects     []string `json:"subjects"`
}

func (u User) Profile() Profile {
	return Profile{
		MobileNumber: u.MobileNumber,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		District:     u.District,
		State:        u.State,
		Pincode:      u.Pincode,
		BatchName:    u.BatchName,
		Subjects:     u.Subjects,
	}
}
