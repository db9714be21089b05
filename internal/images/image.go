// Package images turns uploaded or downloaded photos into payloads the AI
// service and the result page can use.
package images

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// DefaultMaxImageSize is the default maximum image size (10MB)
const DefaultMaxImageSize = 10 * 1024 * 1024

var (
	ErrTooLarge           = errors.New("image too large")
	ErrInvalidContentType = errors.New("invalid content type")
	ErrEmpty              = errors.New("empty image")
)

// Image is a photo of the property held in memory.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// New validates data as an image and determines its MIME type from the
// content. Only JPEG, PNG, WEBP and HEIC/HEIF are accepted; the declared type
// is only reported in errors.
func New(name string, data []byte, declaredType string) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	mimeType, err := detectMIMEType(data, declaredType, name)
	if err != nil {
		return Image{}, err
	}
	return Image{Name: name, MIMEType: mimeType, Data: data}, nil
}

// Base64 returns the standard base64 encoding of the image data.
func (img Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// DataURL returns the image as a data: URL suitable for an <img> src.
func (img Image) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + img.Base64()
}

// Size returns the image size in bytes.
func (img Image) Size() int {
	return len(img.Data)
}

// Hash creates a SHA256 hash over the image data.
// Includes length prefix for each image to prevent boundary collisions.
func Hash(imgs ...Image) string {
	h := sha256.New()
	for _, img := range imgs {
		// Write length to prevent boundary collisions (e.g. [A,B] vs [AB])
		binary.Write(h, binary.LittleEndian, int64(len(img.Data)))
		h.Write(img.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// supportedTypes are the formats the AI service accepts as inline images.
var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

func detectMIMEType(data []byte, declaredType, name string) (string, error) {
	detected := baseMediaType(http.DetectContentType(data))
	if !strings.HasPrefix(detected, "image/") {
		detected = sniffHEIF(data)
	}
	if detected == "" {
		if declared := baseMediaType(declaredType); declared != "" {
			return "", fmt.Errorf("%w: %q is not an image (declared %s)", ErrInvalidContentType, name, declared)
		}
		return "", fmt.Errorf("%w: could not detect image type of %q", ErrInvalidContentType, name)
	}
	if !supportedTypes[detected] {
		return "", fmt.Errorf("%w: %s is not supported", ErrInvalidContentType, detected)
	}
	return detected, nil
}

// sniffHEIF recognizes HEIC and HEIF photos by the major brand of their ftyp
// box. net/http does not sniff them.
func sniffHEIF(data []byte) string {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return ""
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heim", "heis", "hevc", "hevx":
		return "image/heic"
	case "mif1", "msf1":
		return "image/heif"
	}
	return ""
}

func baseMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}
