package token

import (
	"time"
)

// Record is the persisted token for one identity. The plaintext code is never stored.
type Record struct {
	ID            string     `json:"id" gorm:"primaryKey;size:512"`
	LogID         string     `json:"log_id" gorm:"size:255"`
	CodeHash      string     `json:"-" gorm:"size:255;not null"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"not null;index:idx_one_time_tokens_expires_at"`
	AttemptCount  int        `json:"attempt_count" gorm:"not null"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (Record) TableName() string {
	return "one_time_tokens"
}

func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

type GeneratedCode struct {
	Code      string `json:"code"`
	QRCodeURL string `json:"qr_url"`
}
