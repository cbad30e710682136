package model

import "time"

// Content describes a protected media record stored in Postgres. The access
// code is embedded as a column rather than living in its own table: one grant
// per content, created at upload time and never mutated afterwards.
type Content struct {
	ID          string    `db:"id" gorm:"primaryKey;size:36"`
	Title       string    `db:"title" gorm:"size:255;not null"`
	Description string    `db:"description" gorm:"type:text"`
	ImageURL    string    `db:"image_url" gorm:"type:text;not null"`
	AccessCode  string    `db:"access_code" gorm:"size:6;not null;uniqueIndex"`
	OwnerID     string    `db:"owner_id" gorm:"size:36;not null;index"`
	ViewCount   int64     `db:"view_count" gorm:"not null;default:0"`
	CreatedAt   time.Time `db:"created_at" gorm:"autoCreateTime"`
}
