package models

import "time"

// BaseModel is a candidate subject image. At most one row is active; the
// registry enforces it, the schema does not.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	ImageURL  string    `gorm:"size:512;not null" json:"image_url"` // /static/... path, filesystem path or http(s) URL
	Prompt    *string   `gorm:"type:text" json:"prompt"`
	IsActive  bool      `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BaseModel) TableName() string { return "base_models" }
