// Package intake validates uploaded screenshots and turns them into base64 data URLs.
// HTTP uploads and CLI file paths both go through Encode so the MIME check is identical.
package intake

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// NotImageNotice is shown to the user when a non-image file is picked.
const NotImageNotice = "请上传图片文件"

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("file exceeds upload limit")
	ErrEmpty    = errors.New("file is empty")
)

// ValidationError rejects a file before it ever reaches the analysis state.
type ValidationError struct {
	ContentType string
	Err         error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("reject upload (content type %q): %v", e.ContentType, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Notice returns the blocking message for the upload view.
func (e *ValidationError) Notice() string {
	switch {
	case errors.Is(e.Err, ErrTooLarge):
		return "图片太大了，你的亏损记录比你的仓位还重。"
	case errors.Is(e.Err, ErrEmpty):
		return "图片是空的，连亏损都没有？"
	default:
		return NotImageNotice
	}
}

type Intake struct {
	maxBytes int64
}

// New returns an Intake; maxBytes <= 0 disables the size limit.
func New(maxBytes int64) *Intake {
	return &Intake{maxBytes: maxBytes}
}

// IsImage reports whether a declared content type is accepted.
func IsImage(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = mt
	}
	return strings.HasPrefix(mediaType, "image/")
}

// Encode validates the declared type and reads r fully into a data URL.
func (in *Intake) Encode(contentType string, r io.Reader) (string, error) {
	if !IsImage(contentType) {
		return "", &ValidationError{ContentType: contentType, Err: ErrNotImage}
	}

	reader := r
	if in.maxBytes > 0 {
		reader = io.LimitReader(r, in.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if in.maxBytes > 0 && int64(len(data)) > in.maxBytes {
		return "", &ValidationError{ContentType: contentType, Err: ErrTooLarge}
	}
	if len(data) == 0 {
		return "", &ValidationError{ContentType: contentType, Err: ErrEmpty}
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}
	return BuildDataURL(strings.ToLower(mediaType), data), nil
}

// FromFileHeader handles a multipart upload using the part's declared Content-Type.
func (in *Intake) FromFileHeader(fh *multipart.FileHeader) (string, error) {
	contentType := fh.Header.Get("Content-Type")
	if !IsImage(contentType) {
		return "", &ValidationError{ContentType: contentType, Err: ErrNotImage}
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return in.Encode(contentType, f)
}

// FromFile declares the type from the file extension, like a browser file picker.
func (in *Intake) FromFile(path string) (string, error) {
	contentType := TypeByPath(path)
	if !IsImage(contentType) {
		return "", &ValidationError{ContentType: contentType, Err: ErrNotImage}
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()
	return in.Encode(contentType, f)
}

// TypeByPath returns the declared content type for a file name, or "" if unknown.
func TypeByPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(ext)
}

// BuildDataURL encodes data as data:<mime>;base64,<payload>.
func BuildDataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURL splits a base64 data URL. A bare base64 string is accepted and
// its MIME type is sniffed from the decoded bytes.
func ParseDataURL(s string) (string, []byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil, errors.New("empty image")
	}

	payload := s
	mimeType := ""
	if strings.HasPrefix(s, "data:") {
		header, body, ok := strings.Cut(s, ",")
		if !ok {
			return "", nil, errors.New("invalid data URL: missing payload")
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return "", nil, errors.New("invalid data URL: not base64 encoded")
		}
		mimeType = strings.TrimSuffix(meta, ";base64")
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64 image: %w", err)
	}
	if mimeType == "" {
		mimeType = SniffMIME(data)
	}
	return mimeType, data, nil
}

// SniffMIME guesses the image type from magic bytes, defaulting to image/jpeg.
func SniffMIME(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\xFF\xD8\xFF")):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return "image/gif"
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	}
	return "image/jpeg"
}
