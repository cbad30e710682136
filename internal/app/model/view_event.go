package model

import "time"

// ViewEvent is one append-only audit row per successful content resolution.
// Viewers stay anonymous; only network/agent metadata is kept.
type ViewEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ContentID string    `json:"content_id" gorm:"size:36;not null;index"`
	OwnerID   string    `json:"owner_id" gorm:"size:36;not null;index"`
	ViewerIP  string    `json:"viewer_ip" gorm:"size:45"`
	UserAgent string    `json:"user_agent" gorm:"size:512"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

const (
	ViewStreamName     = "VIEWS"
	ViewStreamSubject  = "views.events"
	ViewConsumerName   = "view-logger"
	ViewStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
