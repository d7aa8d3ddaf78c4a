package entry

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aikalab/scouter/internal/errors"
)

func TestDecodeDirectJSON(t *testing.T) {
	d := NewDecoder(DecoderOptions{})
	ev, err := d.Decode([]byte(`{"bucket":"b","name":"videos/u1/j1/clip.mp4"}`))
	require.NoError(t, err)
	assert.Equal(t, "b", ev.Bucket)
	assert.Equal(t, "videos/u1/j1/clip.mp4", ev.ObjectPath)
}

func TestDecodeLegacyFileKey(t *testing.T) {
	d := NewDecoder(DecoderOptions{})
	ev, err := d.Decode([]byte(`{"bucket":"b","file":"videos/u1/old.mp4"}`))
	require.NoError(t, err)
	assert.Equal(t, "videos/u1/old.mp4", ev.ObjectPath)
}

func TestDecodeBase64JSON(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte(`{"bucket":"b","name":"videos/u1/j1/clip.mp4"}`))
	d := NewDecoder(DecoderOptions{})
	ev, err := d.Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "videos/u1/j1/clip.mp4", ev.ObjectPath)
}

func TestDecodeJSONString(t *testing.T) {
	// A JSON string whose contents are themselves a JSON document.
	d := NewDecoder(DecoderOptions{})
	ev, err := d.Decode([]byte(`"{\"bucket\":\"b\",\"name\":\"videos/u1/j1/clip.mp4\"}"`))
	require.NoError(t, err)
	assert.Equal(t, "videos/u1/j1/clip.mp4", ev.ObjectPath)
}

func TestDecodePushEnvelope(t *testing.T) {
	inner := base64.StdEncoding.EncodeToString([]byte(`{"bucket":"b","name":"videos/u1/j1/clip.mp4"}`))
	d := NewDecoder(DecoderOptions{})
	ev, err := d.Decode([]byte(`{"message":{"data":"` + inner + `"}}`))
	require.NoError(t, err)
	assert.Equal(t, "b", ev.Bucket)
	assert.Equal(t, "videos/u1/j1/clip.mp4", ev.ObjectPath)
}

func TestDecodeDefaultBucket(t *testing.T) {
	d := NewDecoder(DecoderOptions{DefaultBucket: "fallback"})
	ev, err := d.Decode([]byte(`{"name":"videos/u1/j1/clip.mp4"}`))
	require.NoError(t, err)
	assert.Equal(t, "fallback", ev.Bucket)
}

func TestDecodeMalformed(t *testing.T) {
	d := NewDecoder(DecoderOptions{})

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "%%%%"},
		{"json array", `[1,2,3]`},
		{"object without name", `{"bucket":"b"}`},
		{"no bucket and no default", `{"name":"videos/u1/j1/clip.mp4"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, apperrors.IsMalformedEvent(err), "expected malformed event, got %v", err)
		})
	}
}
