package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Email           string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PhoneNumber     string         `gorm:"uniqueIndex;size:20;not null" json:"phone_number"`
	FirstName       string         `gorm:"size:100;not null" json:"first_name"`
	LastName        string         `gorm:"size:100;not null" json:"last_name"`
	PasswordHash    string         `gorm:"size:255;not null" json:"-"`
	AccountNumber   string         `gorm:"uniqueIndex;size:20;not null" json:"account_number"`
	IsBlacklisted   bool           `gorm:"not null;default:false" json:"-"`
	BlacklistReason string         `gorm:"size:255" json:"-"`
	IsActive        bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Wallet *Wallet `gorm:"foreignKey:UserID" json:"wallet,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
