package model

import (
	"encoding/json"
	"time"
)

// LegalDocument is one indexed passage of a law book with its embedding.
// Embedding is stored as JSON array of float32 for portability.
type LegalDocument struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Source        string    `gorm:"size:256;not null;index" json:"source"`
	Text          string    `gorm:"type:mediumtext;not null" json:"text"`
	Page          *int      `json:"page,omitempty"`
	Article       string    `gorm:"size:32;index" json:"article,omitempty"`
	SectionNumber string    `gorm:"size:32;index" json:"section_number,omitempty"`
	SectionTitle  string    `gorm:"size:256" json:"section_title,omitempty"`
	Embedding     string    `gorm:"type:mediumtext" json:"-"` // JSON array of float32
	CreatedAt     time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (d *LegalDocument) EmbeddingVector() []float32 {
	if d.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(d.Embedding), &v)
	return v
}

func (d *LegalDocument) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		d.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	d.Embedding = string(b)
}
