package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RankingResult struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Results   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Resume struct {
	ID               uuid.UUID
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	StorageProvider  string
	ObjectKey        string
	StorageUrl       string
	UploadStatus     string
	CreatedAt        time.Time
	SessionID        uuid.UUID
}

type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Status    string
	TopN      int32
	CreatedAt time.Time
	UpdatedAt time.Time
}
