package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"zaptui/internal/chat"
)

type fakeDownloader struct {
	payload chat.MediaPayload
	err     error
	calls   int
}

func (d *fakeDownloader) DownloadMedia(_ context.Context, _ string) (chat.MediaPayload, error) {
	d.calls++
	if d.err != nil {
		return chat.MediaPayload{}, d.err
	}
	return d.payload, nil
}

type fakeStatus struct {
	statuses []string
	renders  int
}

func (s *fakeStatus) SetStatus(text string) { s.statuses = append(s.statuses, text) }
func (s *fakeStatus) Render()               { s.renders++ }

func (s *fakeStatus) last() string {
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

func mediaMessage(ts int64) chat.Message {
	return chat.Message{
		ID:        "msg-1",
		ChatID:    "111@s.whatsapp.net",
		HasMedia:  true,
		MediaKind: "image",
		Timestamp: ts,
	}
}

func TestViewIgnoresTextMessages(t *testing.T) {
	dl := &fakeDownloader{}
	status := &fakeStatus{}
	r := NewRenderer(dl, status, false, t.TempDir(), zap.NewNop())

	r.View(context.Background(), chat.Message{ID: "msg-1", Body: "hello"})

	if dl.calls != 0 {
		t.Fatalf("download called %d times for a text message", dl.calls)
	}
	if len(status.statuses) != 0 {
		t.Fatalf("unexpected status updates: %v", status.statuses)
	}
}

func TestViewDownloadFailure(t *testing.T) {
	dl := &fakeDownloader{err: errors.New("media gone")}
	status := &fakeStatus{}
	r := NewRenderer(dl, status, false, t.TempDir(), zap.NewNop())

	r.View(context.Background(), mediaMessage(1700000000))

	if got := status.last(); !strings.HasPrefix(got, "Media download failed:") {
		t.Fatalf("status = %q, want download failure", got)
	}
}

func TestViewDecodeFailure(t *testing.T) {
	dl := &fakeDownloader{payload: chat.MediaPayload{MimeType: "image/png", Base64Data: "not base64!!"}}
	status := &fakeStatus{}
	r := NewRenderer(dl, status, false, t.TempDir(), zap.NewNop())

	r.View(context.Background(), mediaMessage(1700000000))

	if got := status.last(); !strings.HasPrefix(got, "Media decode failed:") {
		t.Fatalf("status = %q, want decode failure", got)
	}
}

func TestViewSavesToDisk(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	dl := &fakeDownloader{payload: chat.MediaPayload{
		MimeType:   "image/png",
		Base64Data: base64.StdEncoding.EncodeToString(raw),
	}}
	status := &fakeStatus{}
	dir := t.TempDir()
	r := NewRenderer(dl, status, false, dir, zap.NewNop())

	r.View(context.Background(), mediaMessage(1700000000))

	path := filepath.Join(dir, "media_1700000000.png")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved media: %v", err)
	}
	if !bytes.Equal(data, raw) {
		t.Fatalf("saved bytes = %v, want %v", data, raw)
	}
	if got := status.last(); got != "Saved media to media_1700000000.png" {
		t.Fatalf("status = %q", got)
	}
}

func TestViewInlineGraphics(t *testing.T) {
	raw := []byte("jpeg bytes here")
	dl := &fakeDownloader{payload: chat.MediaPayload{
		MimeType:   "image/jpeg",
		Base64Data: base64.StdEncoding.EncodeToString(raw),
	}}
	status := &fakeStatus{}
	r := NewRenderer(dl, status, true, t.TempDir(), zap.NewNop())

	var out bytes.Buffer
	r.SetOutput(&out)

	r.View(context.Background(), mediaMessage(1700000000))

	stream := out.String()
	if !strings.HasPrefix(stream, "\x1b_G") || !strings.HasSuffix(stream, "\x1b\\") {
		t.Fatalf("stream not framed as a graphics escape: %q", stream)
	}
	if !strings.Contains(stream, "f=32") {
		t.Fatalf("jpeg stream missing f=32: %q", stream)
	}
	if entries, err := os.ReadDir(r.dir); err != nil || len(entries) != 0 {
		t.Fatalf("inline path should not touch disk, entries=%v err=%v", entries, err)
	}
	if got := status.last(); got != "" {
		t.Fatalf("status = %q, want cleared", got)
	}
}

func TestFileName(t *testing.T) {
	cases := []struct {
		mime string
		want string
	}{
		{"image/png", "media_10.png"},
		{"image/jpeg", "media_10.jpeg"},
		{"video/mp4; codecs=avc1", "media_10.mp4"},
		{"", "media_10.bin"},
		{"application/", "media_10.bin"},
	}
	for _, tc := range cases {
		if got := FileName(10, tc.mime); got != tc.want {
			t.Errorf("FileName(10, %q) = %q, want %q", tc.mime, got, tc.want)
		}
	}
}
