package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	return string(b), err
}

func (t *Tags) Scan(value interface{}) error {
	if value == nil {
		*t = Tags{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	}
	return json.Unmarshal(bytes, t)
}

type KnowledgeItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Category    string    `gorm:"type:varchar(50);index:idx_category" json:"category"`
	Tags        Tags      `gorm:"type:json" json:"tags"`
	ProjectID   uint      `gorm:"not null;index:idx_knowledge_project" json:"project_id"`
	CreatedByID uint      `gorm:"not null" json:"created_by_id"`
	CreatedAt   time.Time `gorm:"index:idx_knowledge_created_at" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	CreatedBy *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

func (KnowledgeItem) TableName() string { return "knowledge_base" }

type SearchLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	QueryText string    `gorm:"type:varchar(500);not null" json:"query_text"`
	UserID    uint      `gorm:"index:idx_search_user" json:"user_id"`
	ProjectID uint      `gorm:"index:idx_search_project" json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (SearchLog) TableName() string { return "search_logs" }
