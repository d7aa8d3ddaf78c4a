package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aikalab/scouter/internal/domain/model"
	apperrors "github.com/aikalab/scouter/internal/errors"
)

// defaultAnalyzeTimeout bounds a single pose service call. Pose estimation on
// a short clip takes tens of seconds.
const defaultAnalyzeTimeout = 120 * time.Second

// PoseClientConfig holds settings for the pose service client.
type PoseClientConfig struct {
	// BaseURL is the pose service root, e.g. "http://pose-svc:8080".
	BaseURL string
	// Token is sent as a bearer token when non-empty.
	Token   string
	Timeout time.Duration
}

// PoseClient calls the HTTP pose estimation service. It implements
// core.PoseAnalyzer; no retry, a failed analysis stays failed.
type PoseClient struct {
	cfg    PoseClientConfig
	client *http.Client
}

// NewPoseClient creates a PoseClient.
func NewPoseClient(cfg PoseClientConfig) *PoseClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAnalyzeTimeout
	}
	return &PoseClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// poseResponse is the service's uniform result document.
type poseResponse struct {
	Status       string          `json:"status"`
	Scores       *model.ScoreSet `json:"scores,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// Analyze uploads the video and returns the score set.
func (c *PoseClient) Analyze(ctx context.Context, localPath string) (*model.ScoreSet, error) {
	body, contentType, err := buildUpload(localPath)
	if err != nil {
		return nil, fmt.Errorf("prepare upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/analyze", body)
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalysis, "pose service unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalysis, "read pose service response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Newf(apperrors.ErrCodeAnalysis,
			"pose service returned status %d", resp.StatusCode)
	}

	var parsed poseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalysis, "decode pose service response")
	}
	if parsed.Status != "success" || parsed.Scores == nil {
		msg := parsed.ErrorMessage
		if msg == "" {
			msg = "analysis failed"
		}
		return nil, apperrors.New(apperrors.ErrCodeAnalysis, msg)
	}
	if err := parsed.Scores.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalysis, "pose service returned invalid scores")
	}

	return parsed.Scores, nil
}

// buildUpload assembles the multipart body with the video under field "video".
func buildUpload(localPath string) (io.Reader, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("video", filepath.Base(localPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
