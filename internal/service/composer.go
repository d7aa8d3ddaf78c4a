// Package service contains the business logic of the video analysis pipeline.
package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/aikalab/scouter/internal/domain/model"
)

// Message length limits. The push channel renders long texts poorly, so the
// Japanese half is capped by characters and the English half by words.
const (
	maxJapaneseChars = 180
	maxEnglishWords  = 120
)

// scoreTier buckets a score for coaching copy. Same scores always produce the
// same message.
type scoreTier int

const (
	tierNeedsWork scoreTier = iota
	tierDeveloping
	tierGood
	tierExcellent
)

func tierOf(v float64) scoreTier {
	switch {
	case v >= 80:
		return tierExcellent
	case v >= 60:
		return tierGood
	case v >= 40:
		return tierDeveloping
	default:
		return tierNeedsWork
	}
}

type metricCopy struct {
	labelJP string
	labelEN string
	// coaching lines indexed by scoreTier
	jp [4]string
	en [4]string
}

var metricCopies = []metricCopy{
	{
		labelJP: "パンチ速度",
		labelEN: "Punch speed",
		jp: [4]string{
			"基礎から見直しましょう",
			"伸びしろがあります",
			"良いスピードです",
			"素晴らしい速さです",
		},
		en: [4]string{
			"work on the basics",
			"room to grow",
			"good speed",
			"excellent speed",
		},
	},
	{
		labelJP: "ガード安定性",
		labelEN: "Guard stability",
		jp: [4]string{
			"ガードを上げる意識を",
			"ガードの維持を練習しましょう",
			"安定したガードです",
			"鉄壁のガードです",
		},
		en: [4]string{
			"keep those hands up",
			"practice holding your guard",
			"steady guard",
			"rock solid guard",
		},
	},
	{
		labelJP: "キック高度",
		labelEN: "Kick height",
		jp: [4]string{
			"柔軟性を鍛えましょう",
			"もう少し高く蹴れます",
			"良い高さです",
			"見事なハイキックです",
		},
		en: [4]string{
			"build your flexibility",
			"you can kick higher",
			"good height",
			"impressive high kicks",
		},
	},
	{
		labelJP: "体幹回転",
		labelEN: "Core rotation",
		jp: [4]string{
			"腰の回転を意識しましょう",
			"回転をもっと使えます",
			"良い回転です",
			"力強い回転です",
		},
		en: [4]string{
			"focus on hip rotation",
			"use more rotation",
			"good rotation",
			"powerful rotation",
		},
	},
}

// ComposeResult builds the bilingual result message for a score set.
// Deterministic: identical scores yield the identical message.
func ComposeResult(scores model.ScoreSet) string {
	values := scores.Values()

	var jp strings.Builder
	jp.WriteString("キックボクシング分析が完了しました！\n")
	jp.WriteString(fmt.Sprintf("総合スコア: %.1f\n", scores.Overall()))
	for i, mc := range metricCopies {
		jp.WriteString(fmt.Sprintf("%s %.0f: %s\n", mc.labelJP, values[i], mc.jp[tierOf(values[i])]))
	}

	var en strings.Builder
	en.WriteString("Your kickboxing analysis is ready!\n")
	en.WriteString(fmt.Sprintf("Overall score: %.1f\n", scores.Overall()))
	for i, mc := range metricCopies {
		en.WriteString(fmt.Sprintf("%s %.0f: %s\n", mc.labelEN, values[i], mc.en[tierOf(values[i])]))
	}

	return truncateChars(strings.TrimRight(jp.String(), "\n"), maxJapaneseChars) +
		"\n\n" +
		truncateWords(strings.TrimRight(en.String(), "\n"), maxEnglishWords)
}

// ComposeRejection builds the bilingual message for a video rejected by a
// local bound check. The reason is embedded verbatim.
func ComposeRejection(reason string) string {
	return "動画を分析できませんでした（" + reason + "）。条件を確認してもう一度お試しください。\n\n" +
		"We could not analyze your video (" + reason + "). Please check the requirements and try again."
}

// ComposeApology builds the bilingual message sent when the analysis routine
// itself failed.
func ComposeApology() string {
	return "申し訳ありません。動画の分析中に問題が発生しました。時間をおいてもう一度お試しください。\n\n" +
		"Sorry, something went wrong while analyzing your video. Please try again later."
}

// ComposeRateLimited builds the bilingual message for a rate-limited upload,
// with a human-readable wait hint.
func ComposeRateLimited(retryAfter time.Duration) string {
	minutes := int(retryAfter.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf(
		"アップロードが多すぎます。約%d分後にもう一度お試しください。\n\n"+
			"Too many uploads. Please try again in about %d minute(s).",
		minutes, minutes)
}

// truncateChars limits s to max runes, appending an ellipsis when cut.
func truncateChars(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// truncateWords limits s to max whitespace-separated words.
func truncateWords(s string, max int) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return s
	}
	return strings.Join(words[:max], " ")
}
