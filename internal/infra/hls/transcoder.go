package hls

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"learntrust/internal/domain"
)

// Variant is one rendition of the adaptive ladder. The ladder is fixed; every
// packaged resource gets all three renditions.
type Variant struct {
	Name         string
	Scale        string
	VideoBitrate string
	AudioBitrate string
	Resolution   string
	Bandwidth    int
}

var Ladder = []Variant{
	{Name: "360p", Scale: "scale=-2:360", VideoBitrate: "800k", AudioBitrate: "96k", Resolution: "640x360", Bandwidth: 800000},
	{Name: "480p", Scale: "scale=-2:480", VideoBitrate: "1400k", AudioBitrate: "128k", Resolution: "854x480", Bandwidth: 1400000},
	{Name: "720p", Scale: "scale=-2:720", VideoBitrate: "2800k", AudioBitrate: "128k", Resolution: "1280x720", Bandwidth: 2800000},
}

// Transcoder segments and encrypts a source file into the output directory.
// The key info file must already exist; ffmpeg reads key URL, key path and IV
// from it.
type Transcoder interface {
	Transcode(ctx context.Context, sourcePath, outputDir, keyInfoPath string) error
}

type FFmpegTranscoder struct {
	Path string
}

func NewFFmpegTranscoder(path string) *FFmpegTranscoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegTranscoder{Path: path}
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, sourcePath, outputDir, keyInfoPath string) error {
	args := []string{"-i", sourcePath}
	for _, variant := range Ladder {
		args = append(args,
			"-vf", variant.Scale,
			"-c:v", "libx264",
			"-b:v", variant.VideoBitrate,
			"-c:a", "aac",
			"-b:a", variant.AudioBitrate,
			"-hls_time", "6",
			"-hls_playlist_type", "vod",
			"-hls_segment_filename", filepath.Join(outputDir, variant.Name+"_%03d.ts"),
			"-hls_key_info_file", keyInfoPath,
			"-f", "hls",
			filepath.Join(outputDir, variant.Name+".m3u8"),
		)
	}

	cmd := exec.CommandContext(ctx, t.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &domain.TranscodeError{
			Output: stderr.String(),
			Err:    fmt.Errorf("ffmpeg: %w", err),
		}
	}
	return nil
}
