package fetch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/csk-sniffer/imagefetch/internal/fetch"
)

func TestDetectMedia(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		mediaType string
		ext       string
		ok        bool
	}{
		{
			name:      "png magic bytes",
			data:      []byte("\x89PNG\r\n\x1a\n0000"),
			mediaType: "image/png",
			ext:       ".png",
			ok:        true,
		},
		{
			name:      "jpeg magic bytes",
			data:      []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'},
			mediaType: "image/jpeg",
			ext:       ".jpg",
			ok:        true,
		},
		{
			name:      "gif magic bytes",
			data:      []byte("GIF89a\x01\x00\x01\x00"),
			mediaType: "image/gif",
			ext:       ".gif",
			ok:        true,
		},
		{
			name:      "bmp magic bytes",
			data:      []byte("BM\x00\x00\x00\x00"),
			mediaType: "image/bmp",
			ext:       ".bmp",
			ok:        true,
		},
		{
			name:      "webp magic bytes",
			data:      []byte("RIFF\x00\x00\x00\x00WEBPVP8 "),
			mediaType: "image/webp",
			ext:       ".webp",
			ok:        true,
		},
		{
			name: "html page",
			data: []byte("<html><body>not found</body></html>"),
			ok:   false,
		},
		{
			name: "plain text",
			data: []byte("this is just text"),
			ok:   false,
		},
		{
			name: "empty body",
			data: nil,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaType, ext, ok := fetch.DetectMedia(tt.data)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.mediaType, mediaType)
				assert.Equal(t, tt.ext, ext)
			}
		})
	}
}
