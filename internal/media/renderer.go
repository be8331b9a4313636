package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"zaptui/internal/chat"
)

// Downloader fetches a media payload by message id.
type Downloader interface {
	DownloadMedia(ctx context.Context, messageID string) (chat.MediaPayload, error)
}

// StatusSink receives transient status updates for the user.
type StatusSink interface {
	SetStatus(text string)
	Render()
}

// Renderer decodes downloaded media and either emits an inline kitty
// graphics stream or saves the payload to disk, depending on terminal
// capability. Every failure is reported through the status line and never
// propagates: media viewing is non-fatal to the session.
type Renderer struct {
	downloader Downloader
	status     StatusSink
	logger     *zap.Logger
	graphics   bool
	out        io.Writer // escape-stream destination, normally os.Stdout
	dir        string    // save directory for the fallback path
}

// NewRenderer creates a media renderer. graphics selects the inline
// branch; dir is where fallback files land ("" means the working
// directory).
func NewRenderer(downloader Downloader, status StatusSink, graphics bool, dir string, logger *zap.Logger) *Renderer {
	return &Renderer{
		downloader: downloader,
		status:     status,
		logger:     logger,
		graphics:   graphics,
		out:        os.Stdout,
		dir:        dir,
	}
}

// SetOutput overrides the escape-stream destination.
func (r *Renderer) SetOutput(w io.Writer) {
	r.out = w
}

// View downloads, decodes and renders the media attached to a message.
// Messages without media are a no-op.
func (r *Renderer) View(ctx context.Context, m chat.Message) {
	if !m.HasMedia {
		return
	}

	r.report("Downloading media...")

	payload, err := r.downloader.DownloadMedia(ctx, m.ID)
	if err != nil {
		r.logger.Warn("media download failed", zap.String("msg_id", m.ID), zap.Error(err))
		r.report("Media download failed: " + err.Error())
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload.Base64Data)
	if err != nil {
		r.logger.Warn("media decode failed", zap.String("msg_id", m.ID), zap.Error(err))
		r.report("Media decode failed: " + err.Error())
		return
	}

	if r.graphics {
		stream := EncodeInline(data, formatFromMime(payload.MimeType), 0)
		if _, err := io.WriteString(r.out, stream); err != nil {
			r.report("Media render failed: " + err.Error())
			return
		}
		r.report("")
		return
	}

	name := FileName(m.Timestamp, payload.MimeType)
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		r.logger.Warn("media save failed", zap.String("path", path), zap.Error(err))
		r.report("Media save failed: " + err.Error())
		return
	}
	r.report("Saved media to " + name)
}

// FileName derives the fallback file name from the message timestamp and
// the payload's MIME subtype.
func FileName(timestamp int64, mimeType string) string {
	return fmt.Sprintf("media_%d.%s", timestamp, subtype(mimeType))
}

func (r *Renderer) report(text string) {
	r.status.SetStatus(text)
	r.status.Render()
}

// formatFromMime maps a MIME type to the kitty format name, empty when
// the format should be omitted.
func formatFromMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "png"):
		return "png"
	case strings.Contains(mimeType, "jpeg"), strings.Contains(mimeType, "jpg"):
		return "jpeg"
	default:
		return ""
	}
}

func subtype(mimeType string) string {
	if i := strings.IndexByte(mimeType, '/'); i >= 0 && i+1 < len(mimeType) {
		sub := mimeType[i+1:]
		// Strip any parameters, e.g. "ogg; codecs=opus".
		if j := strings.IndexByte(sub, ';'); j >= 0 {
			sub = sub[:j]
		}
		return strings.TrimSpace(sub)
	}
	return "bin"
}
