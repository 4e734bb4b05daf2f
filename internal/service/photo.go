package service

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// photoUpload is a decoded inline photo ready for storage
type photoUpload struct {
	data        []byte
	contentType string
	ext         string
}

// parsePhoto accepts an empty string, a base64 data URL holding an image, or
// an absolute http(s) URL. Data URLs are returned decoded; links are returned
// as external URLs and never fetched.
func parsePhoto(photo string, maxBytes int64) (*photoUpload, string, error) {
	photo = strings.TrimSpace(photo)
	if photo == "" {
		return nil, "", nil
	}

	if strings.HasPrefix(photo, "data:") {
		upload, err := decodeDataURL(photo, maxBytes)
		return upload, "", err
	}

	u, err := url.Parse(photo)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", fmt.Errorf("%w: expected an image data URL or http(s) URL", ErrInvalidPhoto)
	}
	if len(photo) > 2000 {
		return nil, "", fmt.Errorf("%w: URL too long", ErrInvalidPhoto)
	}
	return nil, photo, nil
}

func decodeDataURL(photo string, maxBytes int64) (*photoUpload, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(photo, "data:"), ",")
	if !ok || !strings.HasSuffix(strings.ToLower(header), ";base64") {
		return nil, fmt.Errorf("%w: data URL must be base64 encoded", ErrInvalidPhoto)
	}

	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, ErrPhotoTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: malformed base64", ErrInvalidPhoto)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidPhoto)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrPhotoTooLarge
	}

	// The declared media type is ignored; the content decides
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: content is %s, not an image", ErrInvalidPhoto, mtype.String())
	}

	return &photoUpload{
		data:        data,
		contentType: mtype.String(),
		ext:         mtype.Extension(),
	}, nil
}
