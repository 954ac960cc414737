package sqlstore

import "time"

type documentModel struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement"`
	Collection  string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_documents_collection_record,priority:1"`
	RecordID    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_documents_collection_record,priority:2"`
	Kind        int       `gorm:"not null"`
	Vector      []byte    `gorm:"not null"`
	Model       string    `gorm:"type:varchar(128)"`
	Metadata    string    `gorm:"type:text"`
	RawText     string    `gorm:"type:text;not null"`
	ContentHash string    `gorm:"type:varchar(32);index"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (documentModel) TableName() string { return "documents" }

type sessionModel struct {
	Seq            uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID      string    `gorm:"type:varchar(64);index;not null"`
	Backend        string    `gorm:"type:varchar(32);not null"`
	IndexName      string    `gorm:"type:varchar(255)"`
	Namespace      string    `gorm:"type:varchar(255)"`
	DatabaseName   string    `gorm:"type:varchar(255)"`
	CollectionName string    `gorm:"type:varchar(255)"`
	Files          string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"index;not null"`
}

func (sessionModel) TableName() string { return "sessions" }

type turnModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"type:varchar(128);index;not null"`
	Role      string    `gorm:"type:varchar(16);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (turnModel) TableName() string { return "turns" }

type greetingModel struct {
	UserID    string `gorm:"type:varchar(128);primaryKey"`
	Greeted   bool   `gorm:"not null"`
	UpdatedAt time.Time
}

func (greetingModel) TableName() string { return "greetings" }

type processedModel struct {
	MessageID   string    `gorm:"type:varchar(255);primaryKey"`
	ProcessedAt time.Time `gorm:"index;not null"`
}

func (processedModel) TableName() string { return "processed_messages" }
