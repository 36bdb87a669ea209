package intake

import (
	"bytes"
	"encoding/base64"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestEncodeImage(t *testing.T) {
	in := New(0)
	got, err := in.Encode("image/png", bytes.NewReader(pngMagic))
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngMagic), got)
}

func TestEncodeRejectsNonImage(t *testing.T) {
	in := New(0)
	for _, ct := range []string{"application/pdf", "text/plain", "", "imagex/png"} {
		_, err := in.Encode(ct, strings.NewReader("%PDF-1.4"))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, ct)
		assert.ErrorIs(t, err, ErrNotImage)
		assert.Equal(t, NotImageNotice, verr.Notice())
	}
}

func TestEncodeSizeLimit(t *testing.T) {
	in := New(4)
	_, err := in.Encode("image/jpeg", bytes.NewReader([]byte("12345")))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = in.Encode("image/jpeg", bytes.NewReader([]byte("1234")))
	assert.NoError(t, err)

	_, err = in.Encode("image/jpeg", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(img, pngMagic, 0o644))
	pdf := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))

	in := New(1 << 20)
	got, err := in.FromFile(img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "data:image/png;base64,"))

	_, err = in.FromFile(pdf)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestFromFileHeader(t *testing.T) {
	for _, tc := range []struct {
		name, filename, contentType string
		wantErr                     error
	}{
		{"png", "photo.png", "image/png", nil},
		{"pdf", "notes.pdf", "application/pdf", ErrNotImage},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fh := buildFileHeader(t, tc.filename, tc.contentType, pngMagic)
			got, err := New(0).FromFileHeader(fh)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			mimeType, data, err := ParseDataURL(got)
			require.NoError(t, err)
			assert.Equal(t, tc.contentType, mimeType)
			assert.Equal(t, pngMagic, data)
		})
	}
}

func TestParseDataURL(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pngMagic)

	mimeType, data, err := ParseDataURL("data:image/webp;base64," + raw)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mimeType)
	assert.Equal(t, pngMagic, data)

	mimeType, _, err = ParseDataURL(raw)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	for _, bad := range []string{"", "data:image/png;base64", "data:image/png,abc", "data:image/png;base64,!!!"} {
		_, _, err := ParseDataURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestSniffMIME(t *testing.T) {
	assert.Equal(t, "image/jpeg", SniffMIME([]byte("\xFF\xD8\xFF\xE0")))
	assert.Equal(t, "image/gif", SniffMIME([]byte("GIF89a....")))
	assert.Equal(t, "image/webp", SniffMIME([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "image/jpeg", SniffMIME([]byte("??")))
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := error(&ValidationError{ContentType: "text/plain", Err: ErrNotImage})
	assert.True(t, errors.Is(err, ErrNotImage))
	assert.Contains(t, err.Error(), "text/plain")
}

func buildFileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}
