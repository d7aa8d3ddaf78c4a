package service

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/aikalab/scouter/internal/domain/model"
)

func sampleScores() model.ScoreSet {
	return model.ScoreSet{PunchSpeed: 85, GuardStability: 62, KickHeight: 45, CoreRotation: 20}
}

func TestComposeResultDeterministic(t *testing.T) {
	a := ComposeResult(sampleScores())
	b := ComposeResult(sampleScores())
	assert.Equal(t, a, b)
}

func TestComposeResultContainsScores(t *testing.T) {
	msg := ComposeResult(sampleScores())
	assert.Contains(t, msg, "総合スコア: 53.0")
	assert.Contains(t, msg, "Overall score: 53.0")
	assert.Contains(t, msg, "Punch speed 85")
	assert.Contains(t, msg, "excellent speed")
	assert.Contains(t, msg, "focus on hip rotation")
}

func TestComposeResultTierBoundaries(t *testing.T) {
	low := ComposeResult(model.ScoreSet{PunchSpeed: 39, GuardStability: 40, KickHeight: 60, CoreRotation: 80})
	assert.Contains(t, low, "work on the basics")
	assert.Contains(t, low, "practice holding your guard")
	assert.Contains(t, low, "good height")
	assert.Contains(t, low, "powerful rotation")
}

func TestComposeResultLengthLimits(t *testing.T) {
	msg := ComposeResult(sampleScores())
	parts := strings.SplitN(msg, "\n\n", 2)
	assert.Len(t, parts, 2)

	jpChars := utf8.RuneCountInString(parts[0])
	assert.LessOrEqual(t, jpChars, 180, "japanese half exceeds char cap")

	enWords := len(strings.Fields(parts[1]))
	assert.LessOrEqual(t, enWords, 120, "english half exceeds word cap")
}

func TestComposeRejectionEmbedsReason(t *testing.T) {
	msg := ComposeRejection("file size too large")
	assert.Contains(t, msg, "file size too large")
	assert.Contains(t, msg, "We could not analyze your video")
	assert.Contains(t, msg, "動画を分析できませんでした")
}

func TestComposeApologyBilingual(t *testing.T) {
	msg := ComposeApology()
	assert.Contains(t, msg, "申し訳ありません")
	assert.Contains(t, msg, "Sorry")
}

func TestComposeRateLimited(t *testing.T) {
	msg := ComposeRateLimited(31 * time.Minute)
	assert.Contains(t, msg, "約31分後")
	assert.Contains(t, msg, "31 minute(s)")
}

func TestComposeRateLimitedMinimumOneMinute(t *testing.T) {
	msg := ComposeRateLimited(5 * time.Second)
	assert.Contains(t, msg, "約1分後")
}

func TestTruncateChars(t *testing.T) {
	long := strings.Repeat("あ", 200)
	out := truncateChars(long, 180)
	assert.Equal(t, 180, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, "…"))
}

func TestTruncateWords(t *testing.T) {
	long := strings.Repeat("word ", 150)
	out := truncateWords(long, 120)
	assert.Len(t, strings.Fields(out), 120)
}
