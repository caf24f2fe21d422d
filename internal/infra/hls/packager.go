// Package hls packages source videos into encrypted adaptive HLS: a fixed
// three-rendition ladder, AES-128 segment encryption with per-resource key
// material, and a generated master playlist.
package hls

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"learntrust/internal/domain"
)

const (
	KeyFileName        = "encryption.key"
	ivFileName         = "encryption.iv"
	keyInfoFileName    = "key_info.txt"
	MasterPlaylistName = "master.m3u8"
)

// AssetStore persists packaging results. Only a Ready result short-circuits a
// later Prepare call; pending and failed rows are overwritten by the retry.
type AssetStore interface {
	Get(ctx context.Context, resourceID string) (domain.PackagingResult, bool, error)
	Save(ctx context.Context, result domain.PackagingResult) error
}

type Packager struct {
	Root       string
	KeyBaseURL string
	Transcoder Transcoder
	Assets     AssetStore
	Logger     *slog.Logger
	Now        func() time.Time
}

func NewPackager(root, keyBaseURL string, transcoder Transcoder, assets AssetStore, logger *slog.Logger) *Packager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Packager{
		Root:       root,
		KeyBaseURL: strings.TrimSuffix(keyBaseURL, "/"),
		Transcoder: transcoder,
		Assets:     assets,
		Logger:     logger,
		Now:        time.Now,
	}
}

// Prepare packages sourcePath for resourceID. Key material is generated once
// per run and never rotated in place: a retry after failure regenerates the
// key along with every segment, so key and segments always match.
func (p *Packager) Prepare(ctx context.Context, resourceID, sourcePath string) (domain.PackagingResult, error) {
	existing, ok, err := p.Assets.Get(ctx, resourceID)
	if err != nil {
		return domain.PackagingResult{}, err
	}
	if ok && existing.Status == domain.MediaStatusReady {
		return existing, nil
	}

	dir := p.ResourceDir(resourceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.PackagingResult{}, err
	}

	key, err := p.writeKeyMaterial(resourceID, dir)
	if err != nil {
		return domain.PackagingResult{}, err
	}

	result := domain.PackagingResult{
		ResourceID: resourceID,
		Status:     domain.MediaStatusPending,
		Directory:  dir,
		Key:        key,
		PackagedAt: p.Now().UTC(),
	}
	if err := p.Assets.Save(ctx, result); err != nil {
		return domain.PackagingResult{}, err
	}

	keyInfoPath := filepath.Join(dir, keyInfoFileName)
	if err := p.Transcoder.Transcode(ctx, sourcePath, dir, keyInfoPath); err != nil {
		if tErr, ok := err.(*domain.TranscodeError); ok {
			tErr.ResourceID = resourceID
		}
		result.Status = domain.MediaStatusFailed
		result.PackagedAt = p.Now().UTC()
		if saveErr := p.Assets.Save(ctx, result); saveErr != nil {
			p.Logger.Error("failed to record packaging failure",
				"resource_id", resourceID, "error", saveErr)
		}
		return domain.PackagingResult{}, err
	}

	masterPath, err := p.writeMasterPlaylist(dir)
	if err != nil {
		return domain.PackagingResult{}, err
	}

	result.Status = domain.MediaStatusReady
	result.MasterPlaylist = masterPath
	result.Variants = resultVariants(dir)
	result.PackagedAt = p.Now().UTC()
	if err := p.Assets.Save(ctx, result); err != nil {
		return domain.PackagingResult{}, err
	}
	p.Logger.Info("packaged resource", "resource_id", resourceID, "directory", dir)
	return result, nil
}

func (p *Packager) ResourceDir(resourceID string) string {
	return filepath.Join(p.Root, "hls", resourceID)
}

func (p *Packager) writeKeyMaterial(resourceID, dir string) (domain.MediaKeyMaterial, error) {
	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return domain.MediaKeyMaterial{}, err
	}
	ivBytes := make([]byte, 16)
	if _, err := rand.Read(ivBytes); err != nil {
		return domain.MediaKeyMaterial{}, err
	}
	iv := hex.EncodeToString(ivBytes)
	keyURL := p.KeyBaseURL + "/" + resourceID

	keyPath := filepath.Join(dir, KeyFileName)
	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		return domain.MediaKeyMaterial{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, ivFileName), []byte(iv), 0o600); err != nil {
		return domain.MediaKeyMaterial{}, err
	}
	keyInfo := keyURL + "\n" + keyPath + "\n" + iv + "\n"
	if err := os.WriteFile(filepath.Join(dir, keyInfoFileName), []byte(keyInfo), 0o600); err != nil {
		return domain.MediaKeyMaterial{}, err
	}
	return domain.MediaKeyMaterial{
		ResourceID: resourceID,
		Key:        key,
		IVHex:      iv,
		KeyURL:     keyURL,
	}, nil
}

func (p *Packager) writeMasterPlaylist(dir string) (string, error) {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	for _, variant := range Ladder {
		fmt.Fprintf(&b, "\n#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n%s.m3u8\n",
			variant.Bandwidth, variant.Resolution, variant.Name)
	}
	masterPath := filepath.Join(dir, MasterPlaylistName)
	if err := os.WriteFile(masterPath, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return masterPath, nil
}

func resultVariants(dir string) []domain.MediaVariant {
	out := make([]domain.MediaVariant, 0, len(Ladder))
	for _, variant := range Ladder {
		out = append(out, domain.MediaVariant{
			Name:       variant.Name,
			Bandwidth:  variant.Bandwidth,
			Resolution: variant.Resolution,
			Playlist:   filepath.Join(dir, variant.Name+".m3u8"),
		})
	}
	return out
}
