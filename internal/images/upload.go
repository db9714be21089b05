package images

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// FromMultipart reads an uploaded form file, enforcing maxSize.
func FromMultipart(fh *multipart.FileHeader, maxSize int64) (Image, error) {
	if fh.Size > maxSize {
		return Image{}, fmt.Errorf("%w: %s is %d bytes, limit is %d bytes", ErrTooLarge, fh.Filename, fh.Size, maxSize)
	}

	f, err := fh.Open()
	if err != nil {
		return Image{}, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := readLimited(f, maxSize)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", fh.Filename, err)
	}

	return New(fh.Filename, data, fh.Header.Get("Content-Type"))
}

// FromFile reads an image from disk, enforcing maxSize.
func FromFile(path string, maxSize int64) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	data, err := readLimited(f, maxSize)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", path, err)
	}

	return New(filepath.Base(path), data, "")
}

// readLimited uses a LimitReader to enforce the size limit even when the
// declared size is missing or wrong.
func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: exceeds limit of %d bytes", ErrTooLarge, maxSize)
	}
	return data, nil
}
