package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	FirstName   string         `json:"firstname" gorm:"not null"`
	LastName    string         `json:"lastname" gorm:"not null"`
	Email       string         `json:"email" gorm:"uniqueIndex;not null"`
	Password    string         `json:"-" gorm:"not null"`
	IsActivated bool           `json:"is_activated" gorm:"not null;default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// DisplayName is the name shown on scoreboards and results.
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}
