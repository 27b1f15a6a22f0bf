// Package blob stores item images and avatars in an object store and returns
// the public URL each object is served from.
package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Store provides access to object storage.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

var (
	ErrInvalidImage  = errors.New("invalid image")
	ErrImageTooLarge = errors.New("image too large")
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Image is a decoded upload ready for Put.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Reader returns a reader over the image bytes.
func (img Image) Reader() io.Reader {
	return bytes.NewReader(img.Data)
}

// ExtensionFor returns the file extension for an accepted image content type.
func ExtensionFor(contentType string) (string, bool) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// DecodeImage decodes a base64 image, either raw or as a "data:<mime>;base64," URL.
// The content type is sniffed from the bytes when the input does not declare one.
func DecodeImage(encoded string, maxBytes int) (Image, error) {
	encoded = strings.TrimSpace(encoded)
	declared := ""
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return Image{}, ErrInvalidImage
		}
		declared = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = payload
	}
	if encoded == "" {
		return Image{}, ErrInvalidImage
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(encoded)) > maxBytes+2 {
		return Image{}, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return Image{}, ErrImageTooLarge
	}

	contentType := declared
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	ext, ok := ExtensionFor(contentType)
	if !ok {
		return Image{}, fmt.Errorf("%w: unsupported content type %q", ErrInvalidImage, contentType)
	}
	return Image{Data: data, ContentType: contentType, Ext: ext}, nil
}

// MemoryStore keeps objects in memory.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory store serving URLs under baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string][]byte)}
}

// Put stores the object under key, replacing any previous content.
func (m *MemoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return m.BaseURL + "/" + key, nil
}

// Delete removes the object under key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Get returns the stored object.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
