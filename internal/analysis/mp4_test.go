package analysis

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(boxType string, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(8+len(payload)))
	copy(out[4:8], boxType)
	copy(out[8:], payload)
	return out
}

func mvhdV0(timescale, duration uint32) []byte {
	body := make([]byte, 20)
	// version 0, flags 0, ctime 0, mtime 0
	binary.BigEndian.PutUint32(body[12:16], timescale)
	binary.BigEndian.PutUint32(body[16:20], duration)
	return box("mvhd", body)
}

func writeMP4(t *testing.T, boxes ...[]byte) string {
	t.Helper()
	var data []byte
	for _, b := range boxes {
		data = append(data, b...)
	}
	path := filepath.Join(t.TempDir(), "probe.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestProbeDurationVersion0(t *testing.T) {
	path := writeMP4(t,
		box("ftyp", []byte("isom0000")),
		box("moov", mvhdV0(1000, 15000)),
	)

	d, err := ProbeDuration(path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)
}

func TestProbeDurationVersion1(t *testing.T) {
	body := make([]byte, 32)
	body[0] = 1 // version
	binary.BigEndian.PutUint32(body[20:24], 600)
	binary.BigEndian.PutUint64(body[24:32], 1200)
	path := writeMP4(t,
		box("ftyp", []byte("isom0000")),
		box("moov", box("mvhd", body)),
	)

	d, err := ProbeDuration(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}

func TestProbeDurationMoovAfterMdat(t *testing.T) {
	path := writeMP4(t,
		box("ftyp", []byte("isom0000")),
		box("mdat", make([]byte, 4096)),
		box("moov", mvhdV0(1000, 9500)),
	)

	d, err := ProbeDuration(path)
	require.NoError(t, err)
	assert.Equal(t, 9500*time.Millisecond, d)
}

func TestProbeDurationNoMvhd(t *testing.T) {
	path := writeMP4(t, box("ftyp", []byte("isom0000")))
	_, err := ProbeDuration(path)
	require.ErrorIs(t, err, ErrDurationUnknown)
}

func TestProbeDurationGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not an mp4 at all"), 0o600))
	_, err := ProbeDuration(path)
	require.ErrorIs(t, err, ErrDurationUnknown)
}

func TestProbeDurationZeroTimescale(t *testing.T) {
	path := writeMP4(t, box("moov", mvhdV0(0, 100)))
	_, err := ProbeDuration(path)
	require.ErrorIs(t, err, ErrDurationUnknown)
}
