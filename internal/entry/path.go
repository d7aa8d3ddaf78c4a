package entry

import (
	"fmt"
	"hash/fnv"
	"path"
	"strings"

	"github.com/aikalab/scouter/internal/domain/model"
	apperrors "github.com/aikalab/scouter/internal/errors"
)

// DefaultRootPrefix is the only object prefix the pipeline processes.
const DefaultRootPrefix = "videos/"

// Resolver validates object paths against the path contract and extracts the
// user and job identifiers.
type Resolver struct {
	rootPrefix string
}

// NewResolver creates a Resolver for the given root prefix. An empty prefix
// falls back to DefaultRootPrefix.
func NewResolver(rootPrefix string) *Resolver {
	prefix := strings.TrimSpace(rootPrefix)
	if prefix == "" {
		prefix = DefaultRootPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Resolver{rootPrefix: prefix}
}

// Resolve normalizes the event's object path and extracts identifiers.
//
// Path contract: `<root>/<userId>/<jobId>/<filename>` or
// `<root>/<userId>/<jobId>.<ext>`. Normalization happens before the prefix
// check so crafted `..` segments cannot escape the root.
func (r *Resolver) Resolve(event model.StorageEvent) (model.ObjectRef, error) {
	cleaned := path.Clean(event.ObjectPath)

	if strings.HasPrefix(cleaned, "/") || strings.HasPrefix(cleaned, "..") {
		return model.ObjectRef{}, apperrors.Newf(apperrors.ErrCodeInvalidPath,
			"object path escapes the allowed root: %q", event.ObjectPath)
	}
	if !strings.HasPrefix(cleaned, r.rootPrefix) {
		return model.ObjectRef{}, apperrors.Newf(apperrors.ErrCodeInvalidPath,
			"object path is outside %q: %q", r.rootPrefix, event.ObjectPath)
	}

	segments := strings.Split(cleaned, "/")
	// root + user + at least one more segment.
	if len(segments) < 3 {
		return model.ObjectRef{}, apperrors.Newf(apperrors.ErrCodeInvalidPathStructure,
			"object path has too few segments: %q", event.ObjectPath)
	}

	userID := segments[1]
	if !model.ValidUserID(userID) {
		return model.ObjectRef{}, apperrors.Newf(apperrors.ErrCodeInvalidPath,
			"invalid user id segment: %q", userID)
	}

	return model.ObjectRef{
		Bucket:     event.Bucket,
		ObjectPath: cleaned,
		UserID:     userID,
		JobID:      deriveJobID(cleaned, segments),
	}, nil
}

// deriveJobID picks the job identifier from the path: the explicit third segment
// when a filename follows it, otherwise the third segment's basename without
// extension. An unusable candidate falls back to a stable hash of the full path
// so the identifier is deterministic across redeliveries.
func deriveJobID(cleaned string, segments []string) string {
	var candidate string
	if len(segments) >= 4 {
		candidate = segments[2]
	} else {
		base := segments[2]
		candidate = strings.TrimSuffix(base, path.Ext(base))
	}

	candidate = strings.TrimSpace(candidate)
	if candidate == "" || !jobIDAllowed(candidate) {
		return hashPath(cleaned)
	}
	return candidate
}

func jobIDAllowed(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

func hashPath(p string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(p))
	return fmt.Sprintf("path-%016x", h.Sum64())
}
