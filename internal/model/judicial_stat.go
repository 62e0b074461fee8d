package model

import "time"

// JudicialStat is an append-only snapshot of one NJDG metric.
type JudicialStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Metric    string    `gorm:"size:128;not null;index" json:"metric"`
	Count     int64     `gorm:"not null" json:"count"`
	FetchedAt time.Time `gorm:"not null;index" json:"fetched_at"`
}
