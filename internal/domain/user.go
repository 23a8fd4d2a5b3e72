package domain

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName    string    `gorm:"size:120;not null" json:"first_name"`
	LastName     string    `gorm:"size:120;not null" json:"last_name"`
	Role         Role      `gorm:"size:32;not null;index:idx_users_role" json:"role"`
	PasswordHash string    `gorm:"size:1024;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
