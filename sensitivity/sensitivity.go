// Package sensitivity implements the sensitivity tagger (C4): a fixed
// taxonomy of PII/PHI/financial tags derived from text via regex and
// keyword matching, without retaining the underlying text.
//
// Regexes and keyword sets are ported verbatim from
// original_source/lattice/pii.py (EMAIL_RE, PHONE_RE, CREDIT_CARD_RE,
// PHI_KEYWORDS, FINANCIAL_KEYWORDS).
package sensitivity

import (
	"regexp"
	"sort"
	"strings"
)

const (
	TagPIIEmail    = "PII_EMAIL"
	TagPIIPhone    = "PII_PHONE"
	TagPIICard     = "PII_FINANCIAL_CARD"
	TagPHIMedical  = "PHI_MEDICAL"
	TagFinancial   = "FINANCIAL_TERMS"
)

var (
	emailRe  = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	phoneRe  = regexp.MustCompile(`\b(?:\+?\d{1,3}[ -]?)?\(?\d{3}\)?[ -]?\d{3}[ -]?\d{4}\b`)
	cardRe   = regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)

	phiKeywords       = []string{"doctor", "diagnosis", "prescription", "hospital", "patient", "medical"}
	financialKeywords = []string{"salary", "bank", "loan", "credit", "mortgage", "account number"}
)

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Tags returns the sorted, deduplicated set of tags found in text.
func Tags(text string) []string {
	if text == "" {
		return nil
	}

	set := make(map[string]struct{})
	if emailRe.MatchString(text) {
		set[TagPIIEmail] = struct{}{}
	}
	if phoneRe.MatchString(text) {
		set[TagPIIPhone] = struct{}{}
	}
	if cardRe.MatchString(text) {
		set[TagPIICard] = struct{}{}
	}

	lower := strings.ToLower(text)
	if containsAny(lower, phiKeywords) {
		set[TagPHIMedical] = struct{}{}
	}
	if containsAny(lower, financialKeywords) {
		set[TagFinancial] = struct{}{}
	}

	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Union merges two already-sorted-or-not tag slices into one sorted,
// deduplicated slice (invariant 1 of §3/§8).
func Union(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		set[t] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
