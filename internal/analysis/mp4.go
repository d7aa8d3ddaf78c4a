package analysis

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"time"
)

// ErrDurationUnknown is returned when no mvhd box can be located. Callers
// treat an unknown duration as passing the duration bound.
var ErrDurationUnknown = errors.New("video duration unknown")

// boxScanLimit bounds how far into the file the probe walks. The moov box of
// a phone upload sits near the start or the very end; 64MB covers both for
// the sizes this pipeline accepts.
const boxScanLimit = int64(64 << 20)

// ProbeDuration reads the MP4 mvhd box and returns the presentation duration.
// Best effort only: any structural surprise yields ErrDurationUnknown rather
// than an error the pipeline would act on.
func ProbeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	return scanBoxes(f, 0, minInt64(info.Size(), boxScanLimit))
}

// scanBoxes walks the top-level box sequence in [offset, end) looking for
// moov/mvhd.
func scanBoxes(r io.ReaderAt, offset, end int64) (time.Duration, error) {
	var header [16]byte
	for offset+8 <= end {
		if _, err := r.ReadAt(header[:8], offset); err != nil {
			return 0, ErrDurationUnknown
		}

		size := int64(binary.BigEndian.Uint32(header[:4]))
		boxType := string(header[4:8])
		headerLen := int64(8)

		switch size {
		case 0:
			// box extends to end of file
			size = end - offset
		case 1:
			if _, err := r.ReadAt(header[8:16], offset+8); err != nil {
				return 0, ErrDurationUnknown
			}
			size = int64(binary.BigEndian.Uint64(header[8:16]))
			headerLen = 16
		}
		if size < headerLen {
			return 0, ErrDurationUnknown
		}

		switch boxType {
		case "moov":
			return scanBoxes(r, offset+headerLen, offset+size)
		case "mvhd":
			return readMvhd(r, offset+headerLen)
		}

		offset += size
	}
	return 0, ErrDurationUnknown
}

// readMvhd decodes the timescale and duration fields of an mvhd box body.
func readMvhd(r io.ReaderAt, offset int64) (time.Duration, error) {
	var version [1]byte
	if _, err := r.ReadAt(version[:], offset); err != nil {
		return 0, ErrDurationUnknown
	}

	var timescale uint32
	var duration uint64

	switch version[0] {
	case 0:
		// version(1) flags(3) ctime(4) mtime(4) timescale(4) duration(4)
		var buf [8]byte
		if _, err := r.ReadAt(buf[:], offset+12); err != nil {
			return 0, ErrDurationUnknown
		}
		timescale = binary.BigEndian.Uint32(buf[:4])
		duration = uint64(binary.BigEndian.Uint32(buf[4:]))
	case 1:
		// version(1) flags(3) ctime(8) mtime(8) timescale(4) duration(8)
		var buf [12]byte
		if _, err := r.ReadAt(buf[:], offset+20); err != nil {
			return 0, ErrDurationUnknown
		}
		timescale = binary.BigEndian.Uint32(buf[:4])
		duration = binary.BigEndian.Uint64(buf[4:])
	default:
		return 0, ErrDurationUnknown
	}

	if timescale == 0 {
		return 0, ErrDurationUnknown
	}
	return time.Duration(float64(duration) / float64(timescale) * float64(time.Second)), nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
