package domain

import "time"

// Module is the media resource the core gates access to. Course/module CRUD
// lives outside the core; the validator and streaming layer only read it.
type Module struct {
	ID              string
	CourseID        string
	Title           string
	DurationSeconds float64
	MinWatchPercent int
	ReleaseDate     *time.Time
	IsPublished     bool
	HLSPath         string
}

// Progress is the mutable per-(student, module) completion state fed by
// validated watch events. Unlike the ledger it may be updated in place.
type Progress struct {
	SubjectID    string
	ResourceID   string
	CourseID     string
	WatchPercent float64
	IsCompleted  bool
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}
