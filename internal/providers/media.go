package providers

import (
	"fmt"
	"strings"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"

	"github.com/vincent-petithory/dataurl"
)

// isRemoteURL reports whether the media payload is a URL the gateway can
// fetch itself rather than inline content.
func isRemoteURL(data string) bool {
	return strings.HasPrefix(data, "http://") || strings.HasPrefix(data, "https://")
}

// toDataURL validates inline media and returns it in RFC 2397 form.
func toDataURL(media MediaPayload) (string, error) {
	if _, err := dataurl.DecodeString(media.Data); err != nil {
		return "", &ProviderError{
			Kind:    KindRejected,
			Message: fmt.Sprintf("invalid media payload: %v", err),
		}
	}
	return media.Data, nil
}

// decodeDataURL returns the raw bytes and content type of inline media.
func decodeDataURL(media MediaPayload) ([]byte, string, error) {
	decoded, err := dataurl.DecodeString(media.Data)
	if err != nil {
		return nil, "", &ProviderError{
			Kind:    KindRejected,
			Message: fmt.Sprintf("invalid media payload: %v", err),
		}
	}
	return decoded.Data, decoded.ContentType(), nil
}

// mediaFilename derives a generic filename for payloads that do not carry
// one; gateways require a name for file uploads.
func mediaFilename(media MediaPayload) string {
	if isRemoteURL(media.Data) {
		if idx := strings.LastIndexByte(media.Data, '/'); idx >= 0 && idx+1 < len(media.Data) {
			name := media.Data[idx+1:]
			if q := strings.IndexByte(name, '?'); q >= 0 {
				name = name[:q]
			}
			if name != "" {
				return name
			}
		}
	}

	switch media.Kind {
	case models.MessageImage:
		return "image.jpg"
	case models.MessageAudio:
		return "audio.ogg"
	case models.MessageVideo:
		return "video.mp4"
	case models.MessageSticker:
		return "sticker.webp"
	}
	return "file.bin"
}
