package hls

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"learntrust/internal/domain"
	cryptoinfra "learntrust/internal/infra/crypto"
	"learntrust/internal/infra/ledgermem"
)

type stubTranscoder struct {
	calls int
	fail  bool
}

func (s *stubTranscoder) Transcode(_ context.Context, _, outputDir, keyInfoPath string) error {
	s.calls++
	if s.fail {
		return &domain.TranscodeError{Output: "boom", Err: errors.New("exit status 1")}
	}
	if _, err := os.Stat(keyInfoPath); err != nil {
		return err
	}
	for _, variant := range Ladder {
		playlist := filepath.Join(outputDir, variant.Name+".m3u8")
		if err := os.WriteFile(playlist, []byte("#EXTM3U\n"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newTestPackager(t *testing.T, transcoder Transcoder) *Packager {
	t.Helper()
	svc, err := cryptoinfra.NewService("test-secret")
	if err != nil {
		t.Fatalf("crypto service: %v", err)
	}
	store := ledgermem.New(svc)
	return NewPackager(t.TempDir(), "/stream/key", transcoder, store.Media(), nil)
}

func TestPrepareWritesKeyMaterialAndMaster(t *testing.T) {
	transcoder := &stubTranscoder{}
	packager := newTestPackager(t, transcoder)

	result, err := packager.Prepare(context.Background(), "m1", "/videos/m1.mp4")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if result.Status != domain.MediaStatusReady {
		t.Fatalf("expected ready status, got %s", result.Status)
	}
	if len(result.Key.Key) != 16 {
		t.Fatalf("expected a 16-byte key, got %d bytes", len(result.Key.Key))
	}
	if len(result.Key.IVHex) != 32 {
		t.Fatalf("expected 32 hex chars of IV, got %d", len(result.Key.IVHex))
	}
	if result.Key.KeyURL != "/stream/key/m1" {
		t.Fatalf("unexpected key URL %q", result.Key.KeyURL)
	}

	keyOnDisk, err := os.ReadFile(filepath.Join(result.Directory, KeyFileName))
	if err != nil {
		t.Fatalf("read key file: %v", err)
	}
	if !bytes.Equal(keyOnDisk, result.Key.Key) {
		t.Fatal("key file must match the key in the result")
	}

	master, err := os.ReadFile(result.MasterPlaylist)
	if err != nil {
		t.Fatalf("read master playlist: %v", err)
	}
	for _, want := range []string{
		"#EXTM3U",
		"BANDWIDTH=800000,RESOLUTION=640x360",
		"BANDWIDTH=1400000,RESOLUTION=854x480",
		"BANDWIDTH=2800000,RESOLUTION=1280x720",
		"360p.m3u8", "480p.m3u8", "720p.m3u8",
	} {
		if !strings.Contains(string(master), want) {
			t.Fatalf("master playlist missing %q:\n%s", want, master)
		}
	}
	if len(result.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(result.Variants))
	}
}

func TestPrepareIsIdempotentForReadyResource(t *testing.T) {
	transcoder := &stubTranscoder{}
	packager := newTestPackager(t, transcoder)
	ctx := context.Background()

	first, err := packager.Prepare(ctx, "m1", "/videos/m1.mp4")
	if err != nil {
		t.Fatalf("first prepare: %v", err)
	}
	second, err := packager.Prepare(ctx, "m1", "/videos/m1.mp4")
	if err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	if transcoder.calls != 1 {
		t.Fatalf("ready resource must not be re-transcoded, got %d calls", transcoder.calls)
	}
	if !bytes.Equal(first.Key.Key, second.Key.Key) || first.Key.IVHex != second.Key.IVHex {
		t.Fatal("second prepare must return the original key material")
	}
	if first.MasterPlaylist != second.MasterPlaylist {
		t.Fatal("second prepare must return the original manifest reference")
	}
}

func TestPrepareFailureIsRetriable(t *testing.T) {
	transcoder := &stubTranscoder{fail: true}
	packager := newTestPackager(t, transcoder)
	ctx := context.Background()

	_, err := packager.Prepare(ctx, "m1", "/videos/m1.mp4")
	var tErr *domain.TranscodeError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	if tErr.ResourceID != "m1" || tErr.Output != "boom" {
		t.Fatalf("error must carry resource and diagnostics, got %+v", tErr)
	}

	stored, found, err := packager.Assets.Get(ctx, "m1")
	if err != nil || !found {
		t.Fatalf("expected stored failure marker, found=%v err=%v", found, err)
	}
	if stored.Status != domain.MediaStatusFailed {
		t.Fatalf("expected failed status, got %s", stored.Status)
	}

	// A retry after the transcoder recovers regenerates everything.
	transcoder.fail = false
	result, err := packager.Prepare(ctx, "m1", "/videos/m1.mp4")
	if err != nil {
		t.Fatalf("retry prepare: %v", err)
	}
	if result.Status != domain.MediaStatusReady {
		t.Fatalf("expected ready after retry, got %s", result.Status)
	}
	if bytes.Equal(result.Key.Key, stored.Key.Key) {
		t.Fatal("a failed run's key must not be reused")
	}
	if transcoder.calls != 2 {
		t.Fatalf("expected 2 transcode calls, got %d", transcoder.calls)
	}
}
