// Package imaging turns a user-selected file into the payload sent to the AI
// provider and the data URL shown in the conversation.
package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes mirrors the browser-side attachment limit.
const DefaultMaxBytes = 5 * 1024 * 1024

var (
	ErrEmpty    = errors.New("image file is empty")
	ErrTooLarge = errors.New("image file is too large")
	ErrNotImage = errors.New("file is not an image")
	ErrDataURL  = errors.New("malformed data URL")
)

// File is an uploaded file as received from the client.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Part is the transport payload understood by the gateway providers.
type Part struct {
	MIMEType   string `json:"mime_type"`
	Base64Data string `json:"data"`
}

// DataURL renders the part as a data URL.
func (p Part) DataURL() string {
	return "data:" + p.MIMEType + ";base64," + p.Base64Data
}

type Encoded struct {
	Part    Part
	DataURL string
	Name    string
}

type Encoder struct {
	maxBytes int64
}

func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{maxBytes: maxBytes}
}

// Encode validates f and produces its transport and display encodings. The
// declared MIME type is trusted when it is an image type; otherwise the content
// is sniffed.
func (e *Encoder) Encode(f File) (*Encoded, error) {
	if len(f.Data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(f.Data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(f.Data), e.maxBytes)
	}

	mimeType := strings.ToLower(strings.TrimSpace(f.MIMEType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = mimetype.Detect(f.Data).String()
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}

	part := Part{
		MIMEType:   mimeType,
		Base64Data: base64.StdEncoding.EncodeToString(f.Data),
	}
	return &Encoded{
		Part:    part,
		DataURL: part.DataURL(),
		Name:    f.Name,
	}, nil
}

// DecodeDataURL rebuilds a File from a base64 data URL, the inverse of the
// display encoding. An empty name becomes "image.jpg".
func DecodeDataURL(dataURL, name string) (File, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return File{}, ErrDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return File{}, ErrDataURL
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return File{}, fmt.Errorf("%w: not base64", ErrDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return File{}, fmt.Errorf("%w: %v", ErrDataURL, err)
	}
	if name == "" {
		name = "image.jpg"
	}
	return File{Name: name, MIMEType: mimeType, Data: data}, nil
}
