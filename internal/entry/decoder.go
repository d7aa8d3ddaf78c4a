// Package entry normalizes the heterogeneous shapes of storage trigger events
// into the canonical StorageEvent and resolves the path contract.
package entry

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	apperrors "github.com/aikalab/scouter/internal/errors"
	"github.com/aikalab/scouter/internal/domain/model"
)

// Key-fallback expressions over the decoded payload. The upload path has shipped
// several payload shapes over time; `name` is current, `file` is the legacy key.
const (
	objectPathExpr = "name || file"
	bucketExpr     = "bucket"
	// Pub/Sub push wraps the storage payload in {"message":{"data":"<base64>"}}.
	pushEnvelopeExpr = "message.data"
)

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	// DefaultBucket is used when the payload carries no bucket field.
	DefaultBucket string
}

// Decoder turns a raw trigger body into a model.StorageEvent. It tries a small
// ordered set of decode strategies and takes the first that parses.
type Decoder struct {
	defaultBucket string
}

// NewDecoder creates a Decoder.
func NewDecoder(opts DecoderOptions) *Decoder {
	return &Decoder{defaultBucket: strings.TrimSpace(opts.DefaultBucket)}
}

// Decode normalizes a raw event payload. Strategies, in order:
//  1. UTF-8 JSON object
//  2. base64-encoded JSON object
//  3. JSON string containing a JSON object
//
// A Pub/Sub-style push envelope is unwrapped before extraction. All strategies
// failing yields a malformed-event error, which callers treat as skip, never
// retry.
func (d *Decoder) Decode(raw []byte) (model.StorageEvent, error) {
	payload, ok := decodePayload(raw)
	if !ok {
		return model.StorageEvent{}, apperrors.New(apperrors.ErrCodeMalformedEvent, "event payload is not decodable JSON")
	}

	if inner, found := unwrapPushEnvelope(payload); found {
		payload = inner
	}

	return d.extract(payload)
}

// decodePayload runs the strategy ladder and returns the first decoded object.
func decodePayload(raw []byte) (map[string]any, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, false
	}

	if m, ok := decodeJSONObject([]byte(trimmed)); ok {
		return m, true
	}

	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		if m, ok := decodeJSONObject(decoded); ok {
			return m, true
		}
	}

	// A JSON-encoded string whose contents are themselves JSON.
	var s string
	if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
		if m, ok := decodeJSONObject([]byte(s)); ok {
			return m, true
		}
	}

	return nil, false
}

func decodeJSONObject(raw []byte) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// unwrapPushEnvelope extracts and decodes a nested base64 data field when the
// payload is a push-delivery envelope.
func unwrapPushEnvelope(payload map[string]any) (map[string]any, bool) {
	result, err := jmespath.Search(pushEnvelopeExpr, payload)
	if err != nil || result == nil {
		return nil, false
	}
	encoded, ok := result.(string)
	if !ok {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	return decodeJSONObject(decoded)
}

func (d *Decoder) extract(payload map[string]any) (model.StorageEvent, error) {
	objectPath, err := searchString(objectPathExpr, payload)
	if err != nil || objectPath == "" {
		return model.StorageEvent{}, apperrors.New(apperrors.ErrCodeMalformedEvent, "event payload has no object name")
	}

	bucket, err := searchString(bucketExpr, payload)
	if err != nil || bucket == "" {
		bucket = d.defaultBucket
	}
	if bucket == "" {
		return model.StorageEvent{}, apperrors.New(apperrors.ErrCodeMalformedEvent, "event payload has no bucket and no default is configured")
	}

	return model.StorageEvent{Bucket: bucket, ObjectPath: objectPath}, nil
}

func searchString(expr string, data any) (string, error) {
	result, err := jmespath.Search(expr, data)
	if err != nil {
		return "", err
	}
	s, ok := result.(string)
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(s), nil
}
