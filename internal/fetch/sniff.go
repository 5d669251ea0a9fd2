package fetch

import "net/http"

// extByType maps sniffed media types to the extensions downstream stages accept.
var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
}

// DetectMedia infers the media type from content bytes, never from the URL
// suffix. It returns the media type, the canonical file extension, and whether
// the bytes are a supported media item.
func DetectMedia(data []byte) (mediaType string, ext string, ok bool) {
	if len(data) == 0 {
		return "", "", false
	}
	mediaType = http.DetectContentType(data)
	ext, ok = extByType[mediaType]
	if !ok {
		return "", "", false
	}
	return mediaType, ext, true
}
