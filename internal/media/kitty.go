package media

import (
	"encoding/base64"
	"math/rand"
	"strconv"
	"strings"
)

// ChunkSize is the maximum payload length per graphics escape emission.
const ChunkSize = 4096

// Kitty graphics protocol format codes.
const (
	formatPNG  = 100
	formatJPEG = 32
)

// SupportsInlineGraphics reports whether the terminal described by term
// speaks the kitty graphics protocol.
func SupportsInlineGraphics(term string) bool {
	return strings.Contains(term, "kitty")
}

// EncodeInline converts raw image bytes into a kitty graphics escape
// stream. The base64 encoding of data is split into ChunkSize pieces; the
// first chunk carries the control keys (transmit-and-display, format,
// direct transfer, image id) and every chunk carries the continuation
// flag, zero only on the last. format is "png" or "jpeg"; anything else
// omits the format key and lets the terminal sniff the payload. id <= 0
// picks a random id in [0, 1_000_000).
func EncodeInline(data []byte, format string, id int) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	if encoded == "" {
		return ""
	}
	if id <= 0 {
		id = rand.Intn(1_000_000)
	}

	var sb strings.Builder
	for off := 0; off < len(encoded); off += ChunkSize {
		end := off + ChunkSize
		if end > len(encoded) {
			end = len(encoded)
		}

		var keys []string
		if off == 0 {
			keys = append(keys, "a=T")
			switch format {
			case "png":
				keys = append(keys, "f="+strconv.Itoa(formatPNG))
			case "jpeg", "jpg":
				keys = append(keys, "f="+strconv.Itoa(formatJPEG))
			}
			keys = append(keys, "t=d", "i="+strconv.Itoa(id))
		}

		more := "m=1"
		if end == len(encoded) {
			more = "m=0"
		}
		keys = append(keys, more)

		sb.WriteString("\x1b_G")
		sb.WriteString(strings.Join(keys, ","))
		sb.WriteByte(';')
		sb.WriteString(encoded[off:end])
		sb.WriteString("\x1b\\")
	}
	return sb.String()
}
