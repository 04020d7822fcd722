package model

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Username          string         `gorm:"type:varchar(50);uniqueIndex:idx_username;not null" json:"username"`
	Email             string         `gorm:"type:varchar(100);uniqueIndex:idx_email;not null" json:"email"`
	PasswordHash      string         `gorm:"type:varchar(255)" json:"-"`
	GoogleID          string         `gorm:"type:varchar(100);index:idx_google_id" json:"-"`
	EmailVerified     bool           `gorm:"default:false" json:"email_verified"`
	VerificationToken string         `gorm:"type:varchar(512)" json:"-"`
	IsActive          bool           `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

type UserBrief struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

func (u *User) Brief() UserBrief {
	return UserBrief{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}
