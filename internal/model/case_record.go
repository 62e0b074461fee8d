package model

import "time"

type CaseRecord struct {
	CNR             string    `gorm:"primaryKey;size:16" json:"cnr"`
	Petitioner      string    `gorm:"size:512" json:"petitioner"`
	Respondent      string    `gorm:"size:512" json:"respondent"`
	NextHearingDate string    `gorm:"size:32" json:"next_hearing_date"`
	Stage           string    `gorm:"size:256" json:"stage"`
	UpdatedAt       time.Time `json:"updated_at"`
}
