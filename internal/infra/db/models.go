package db

import (
	"time"

	"gorm.io/gorm"

	"learntrust/internal/domain"
)

type LedgerEntryModel struct {
	ID                  string  `gorm:"type:uuid;primaryKey"`
	Seq                 int64   `gorm:"uniqueIndex:uq_ledger_entries_seq;not null"`
	SubjectID           string  `gorm:"index;not null"`
	ResourceID          *string `gorm:"index"`
	EventKind           string  `gorm:"not null"`
	MetadataJSON        []byte  `gorm:"type:jsonb;not null"`
	TokenFingerprint    string  `gorm:"not null"`
	PreviousFingerprint string  `gorm:"not null"`
	CurrentFingerprint  string  `gorm:"not null"`
	CreatedAt           time.Time `gorm:"index;not null"`
}

func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// Ledger entries are sealed at insert. The repository exposes no update or
// delete path; these hooks are the backstop for anything that tries anyway.
func (LedgerEntryModel) BeforeUpdate(*gorm.DB) error {
	return domain.ErrImmutable
}

func (LedgerEntryModel) BeforeDelete(*gorm.DB) error {
	return domain.ErrImmutable
}

// LedgerSeqModel is the single-row linearization point of the chain: appends
// lock it FOR UPDATE, so no two appends can observe the same tail.
type LedgerSeqModel struct {
	LedgerID string    `gorm:"primaryKey"`
	Seq      int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (LedgerSeqModel) TableName() string {
	return "ledger_seq"
}

type WatchEventModel struct {
	ID               string   `gorm:"type:uuid;primaryKey"`
	SubjectID        string   `gorm:"index;uniqueIndex:uq_watch_events_pair_seq;not null"`
	ResourceID       string   `gorm:"index;uniqueIndex:uq_watch_events_pair_seq;not null"`
	EventKind        string   `gorm:"not null"`
	SequenceNumber   int64    `gorm:"uniqueIndex:uq_watch_events_pair_seq;not null"`
	Position         float64  `gorm:"not null"`
	ClientTimestamp  *float64
	TokenFingerprint string    `gorm:"not null"`
	MetadataJSON     []byte    `gorm:"type:jsonb"`
	CreatedAt        time.Time `gorm:"index;not null"`
}

func (WatchEventModel) TableName() string {
	return "watch_events"
}

func (WatchEventModel) BeforeUpdate(*gorm.DB) error {
	return domain.ErrImmutable
}

func (WatchEventModel) BeforeDelete(*gorm.DB) error {
	return domain.ErrImmutable
}

type ModuleModel struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	CourseID        string  `gorm:"index;not null"`
	Title           string  `gorm:"not null"`
	DurationSeconds float64 `gorm:"not null"`
	MinWatchPercent int     `gorm:"not null;default:80"`
	ReleaseDate     *time.Time
	IsPublished     bool   `gorm:"not null"`
	HLSPath         string `gorm:"column:hls_path"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (ModuleModel) TableName() string {
	return "modules"
}

type ProgressModel struct {
	SubjectID    string  `gorm:"primaryKey"`
	ResourceID   string  `gorm:"primaryKey"`
	CourseID     string  `gorm:"index;not null"`
	WatchPercent float64 `gorm:"not null"`
	IsCompleted  bool    `gorm:"not null"`
	CompletedAt  *time.Time
	UpdatedAt    time.Time `gorm:"not null"`
}

func (ProgressModel) TableName() string {
	return "student_progress"
}

type MediaAssetModel struct {
	ResourceID     string `gorm:"type:uuid;primaryKey"`
	Status         string `gorm:"not null"`
	KeyHex         string `gorm:"not null"`
	IVHex          string `gorm:"column:iv_hex;not null"`
	KeyURL         string `gorm:"not null"`
	Directory      string `gorm:"not null"`
	MasterPlaylist string
	VariantsJSON   []byte    `gorm:"type:jsonb"`
	PackagedAt     time.Time `gorm:"not null"`
}

func (MediaAssetModel) TableName() string {
	return "media_assets"
}

type AnchorReceiptModel struct {
	ID          int64  `gorm:"primaryKey"`
	Provider    string `gorm:"not null"`
	HeadSeq     int64  `gorm:"index;not null"`
	PayloadHash string `gorm:"not null"`
	Status      string `gorm:"not null"`
	ErrorCode   *string
	TxID        *string
	CreatedAt   time.Time `gorm:"not null"`
}

func (AnchorReceiptModel) TableName() string {
	return "anchor_receipts"
}
