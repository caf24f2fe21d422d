package domain

import "time"

type MediaStatus string

const (
	MediaStatusPending MediaStatus = "pending"
	MediaStatusReady   MediaStatus = "ready"
	MediaStatusFailed  MediaStatus = "failed"
)

// MediaKeyMaterial is the per-resource AES-128 key material. It is generated
// once before segmentation and never regenerated in place: regenerating would
// invalidate every previously encrypted segment, so callers must re-run full
// packaging instead.
type MediaKeyMaterial struct {
	ResourceID string
	Key        []byte
	IVHex      string
	KeyURL     string
}

// MediaVariant is one bitrate/resolution rendition of a packaged resource.
type MediaVariant struct {
	Name       string
	Bandwidth  int
	Resolution string
	Playlist   string
}

// PackagingResult describes a completed packaging run. Status is Ready only
// after the transcoder succeeded and the master playlist was written; only a
// Ready result short-circuits a later Prepare call.
type PackagingResult struct {
	ResourceID     string
	Status         MediaStatus
	Directory      string
	MasterPlaylist string
	Variants       []MediaVariant
	Key            MediaKeyMaterial
	PackagedAt     time.Time
}
