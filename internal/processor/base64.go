package processor

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidBase64 is returned for image payloads that are not valid base64.
var ErrInvalidBase64 = errors.New("invalid base64 image data")

// DecodeBase64Image decodes a base64 image payload. A data URL prefix
// ("data:image/png;base64,") is accepted and stripped.
func DecodeBase64Image(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		_, rest, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, ErrInvalidBase64
		}
		encoded = rest
	}
	if encoded == "" {
		return nil, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// some clients drop the padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, ErrInvalidBase64
		}
	}
	return data, nil
}
