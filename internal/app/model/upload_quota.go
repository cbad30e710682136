package model

import "time"

// UploadQuota caps how many grants an owner may issue. Created lazily on first
// reference with the configured default limit. Used is only ever incremented.
type UploadQuota struct {
	OwnerID   string    `db:"owner_id" gorm:"primaryKey;size:36"`
	Limit     int       `db:"limit" gorm:"column:limit;not null;default:5"`
	Used      int       `db:"used" gorm:"not null;default:0"`
	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName pins the name referenced by the raw conditional UPDATE in the
// quota repository.
func (UploadQuota) TableName() string {
	return "upload_quotas"
}
