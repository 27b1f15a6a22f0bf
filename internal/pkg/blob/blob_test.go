package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestDecodeImage(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pngHeader)

	tests := []struct {
		name    string
		input   string
		max     int
		wantExt string
		wantErr error
	}{
		{name: "raw sniffed", input: raw, wantExt: "png"},
		{name: "data url", input: "data:image/jpeg;base64," + raw, wantExt: "jpg"},
		{name: "data url webp", input: "data:image/webp;base64," + raw, wantExt: "webp"},
		{name: "unsupported type", input: "data:text/plain;base64," + raw, wantErr: ErrInvalidImage},
		{name: "not base64", input: "@@@", wantErr: ErrInvalidImage},
		{name: "missing base64 marker", input: "data:image/png," + raw, wantErr: ErrInvalidImage},
		{name: "empty", input: "", wantErr: ErrInvalidImage},
		{name: "too large", input: raw, max: 4, wantErr: ErrImageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeImage(tt.input, tt.max)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, img.Ext)
			assert.Equal(t, pngHeader, img.Data)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("https://cdn.example.com/")
	ctx := context.Background()

	url, err := store.Put(ctx, "items/a/b/0.png", bytes.NewReader(pngHeader), int64(len(pngHeader)), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/items/a/b/0.png", url)

	data, ok := store.Get("items/a/b/0.png")
	require.True(t, ok)
	assert.Equal(t, pngHeader, data)

	require.NoError(t, store.Delete(ctx, "items/a/b/0.png"))
	assert.Equal(t, 0, store.Len())
}

func TestCloudinaryPublicID(t *testing.T) {
	c := &CloudinaryStore{folder: "rewear"}
	assert.Equal(t, "rewear/avatars/u1", c.publicID("avatars/u1.png"))

	c.folder = ""
	assert.Equal(t, "items/o/i/0", c.publicID("items/o/i/0.jpg"))
}

func TestMinioURL(t *testing.T) {
	m := &MinioStore{bucket: "rewear", publicURL: "http://localhost:9000"}
	assert.Equal(t, "http://localhost:9000/rewear/avatars/u1.png", m.URL("avatars/u1.png"))
}

func TestMinioPublicReadPolicy(t *testing.T) {
	policy, err := publicReadPolicy("rewear")
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::rewear/*"]
		}]
	}`, policy)
}
