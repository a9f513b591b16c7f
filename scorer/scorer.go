// Package scorer implements the complexity scorer (C3): a bounded [0,1]
// score and a band label derived from prompt text.
//
// Weights, thresholds, and the risk-keyword list are ported verbatim from
// original_source/backend/router/complexity.py (score_complexity,
// choose_band, RISK_KEYWORDS) — the spec's §4.3 restates the same
// algorithm, so the original resolves every numeric constant exactly.
package scorer

import (
	"regexp"
	"strings"

	"github.com/agentrouter/lattice-gateway/bands"
)

// RiskKeywords hint at elevated complexity (legal/compliance/architecture
// style prompts) and also feed the +0.1-per-hit scoring term.
var RiskKeywords = []string{
	"analyze", "optimize", "summarize", "compare", "design", "explain",
	"policy", "architecture", "draft", "contract", "clause", "compliance",
	"legal", "governance", "security", "regulation", "migration",
}

const longContextCharThreshold = 4000

var (
	digitRe     = regexp.MustCompile(`\d`)
	symbolRe    = regexp.MustCompile(`[{}\[\]()=+\-*/<>]`)
	codeWordRe  = regexp.MustCompile(`\bclass\b|\bdef\b|\bfunction\b`)
	jsonShapeRe = regexp.MustCompile(`(?s)\{.*:.*\}`)
	sentenceRe  = regexp.MustCompile(`[.!?]+`)
)

// Score computes the bounded complexity score for a prompt.
func Score(prompt string) float64 {
	if prompt == "" {
		return 0
	}

	nChars := len([]rune(prompt))
	fLen := min1(float64(nChars) / 2000.0)
	fDigits := min1(float64(len(digitRe.FindAllString(prompt, -1))) / 50.0)
	fSymbols := min1(float64(len(symbolRe.FindAllString(prompt, -1))) / 80.0)

	fCode := 0.0
	if strings.Contains(prompt, "```") || codeWordRe.MatchString(prompt) {
		fCode = 0.20
	}
	fJSON := 0.0
	if jsonShapeRe.MatchString(prompt) {
		fJSON = 0.20
	}

	fSent := min1(float64(len(sentenceRe.Split(prompt, -1))) / 20.0)

	hits := keywordHits(prompt)
	fKw := 0.1 * float64(hits)
	if fKw > 0.3 {
		fKw = 0.3
	}

	score := 0.45*fLen + 0.15*fDigits + 0.10*fSymbols + fCode + fJSON + 0.20*fSent + fKw
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// keywordHits counts how many distinct risk keywords appear in the prompt.
func keywordHits(prompt string) int {
	lower := strings.ToLower(prompt)
	n := 0
	for _, k := range RiskKeywords {
		if strings.Contains(lower, k) {
			n++
		}
	}
	return n
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// InternalBand is the band label as computed by the original scorer,
// including the internal-only "long_context"/"complex" labels that §9
// requires be collapsed before reaching CompletionResponse.Band.
func InternalBand(prompt string) string {
	score := Score(prompt)
	textLen := len([]rune(prompt))
	hits := keywordHits(prompt)

	switch {
	case textLen >= longContextCharThreshold:
		return "long_context"
	case textLen >= 900 || score >= 0.65 || hits >= 3:
		return "complex"
	case textLen <= 160 && score <= 0.12 && hits == 0:
		return "simple"
	case score < 0.35 && textLen < 350 && hits <= 1:
		return "simple"
	default:
		return "moderate"
	}
}

// Band returns the normalized, user-facing band (§9: long_context and
// complex both collapse to "high").
func Band(prompt string) bands.Name {
	name, _ := bands.Normalize(InternalBand(prompt))
	return name
}
