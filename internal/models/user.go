package models

import (
	"time"

	"github.com/wowjjang83/ai-style-synthesis/internal/domain"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Role         string    `gorm:"size:20;not null;index;default:USER" json:"role"` // USER | ADMIN
	GoogleID     *string   `gorm:"uniqueIndex;size:255" json:"-"`                   // nil for email signups
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == domain.RoleAdmin }
