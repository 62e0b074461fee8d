package model

import "time"

// QueryLog is the audit trail of one answered question.
type QueryLog struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RequestID        string    `gorm:"size:64;index" json:"request_id"`
	ChannelSessionID string    `gorm:"size:128;index" json:"channel_session_id"`
	Question         string    `gorm:"type:text;not null" json:"question"`
	Corrected        string    `gorm:"type:text" json:"corrected"`
	Mode             string    `gorm:"size:32;not null;index" json:"mode"`
	Scope            string    `gorm:"size:32" json:"scope"`
	HitCount         int       `json:"hit_count"`
	RerankerFallback bool      `json:"reranker_fallback"`
	Degraded         bool      `json:"degraded"`
	LatencyMS        int64     `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}
