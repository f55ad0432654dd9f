// Package analytics normalizes raw backend payloads into one canonical
// schema and derives the display-ready view-model from it: tier
// classifications, mention ratios and top-brand rankings. Everything here is
// pure and defensive; malformed input produces zero values, never a panic.
package analytics

import (
	"regexp"
	"strconv"
	"strings"
)

// Tier is a coarse High/Medium/Low classification derived from a numeric
// score via fixed thresholds.
type Tier string

const (
	TierHigh   Tier = "High"
	TierMedium Tier = "Medium"
	TierLow    Tier = "Low"
	TierNA     Tier = "N/A"
)

// TierFromScore classifies a weighted visibility score. Boundaries are
// inclusive on the lower bound of each tier.
func TierFromScore(score float64) Tier {
	switch {
	case score >= 250:
		return TierHigh
	case score >= 100:
		return TierMedium
	case score > 0:
		return TierLow
	default:
		return TierNA
	}
}

// MentionRatioTier relates a brand's total mentions to the top brand's.
// A zero top total guards the division and yields a zero ratio.
func MentionRatioTier(brandTotal, topTotal float64) (float64, Tier) {
	ratio := 0.0
	if topTotal > 0 {
		ratio = brandTotal / topTotal * 100
	}

	switch {
	case ratio >= 70:
		return ratio, TierHigh
	case ratio >= 40:
		return ratio, TierMedium
	case ratio > 0:
		return ratio, TierLow
	default:
		return ratio, TierNA
	}
}

// ExtractBrandNames reads brand names out of a content-impact header: one
// leading label column, then three columns (name/mentions/score) per brand,
// so names sit at positions 1, 4, 7, ... The last extracted brand is always
// the analyzed brand.
func ExtractBrandNames(header []string) []string {
	var names []string
	for i := 1; i < len(header)-2; i += 3 {
		names = append(names, header[i])
	}
	return names
}

// SumMentionsPerBrand sums each brand's mentions column across all rows.
// Brand i's mentions sit at column 1+i*3+1. Short or malformed rows
// contribute zero.
func SumMentionsPerBrand(rows [][]any, brandNames []string) map[string]float64 {
	totals := make(map[string]float64, len(brandNames))
	for i, name := range brandNames {
		col := 1 + i*3 + 1
		var total float64
		for _, row := range rows {
			if col < len(row) {
				total += cellNumber(row[col])
			}
		}
		totals[name] = total
	}
	return totals
}

// TopBrand returns the brand with the strictly greatest total. Ties resolve
// to the brand encountered first in brandNames order.
func TopBrand(brandNames []string, totals map[string]float64) string {
	var top string
	var best float64
	for i, name := range brandNames {
		if i == 0 || totals[name] > best {
			top = name
			best = totals[name]
		}
	}
	return top
}

var domainScheme = regexp.MustCompile(`(?i)^https?://`)

// CleanDomain reduces a URL to its bare lowercase host: protocol and
// leading www stripped, path discarded. Idempotent, so already-bare domains
// pass through unchanged.
func CleanDomain(url string) string {
	domain := strings.ToLower(strings.TrimSpace(url))
	domain = domainScheme.ReplaceAllString(domain, "")
	domain = strings.TrimPrefix(domain, "www.")
	if idx := strings.IndexByte(domain, '/'); idx >= 0 {
		domain = domain[:idx]
	}
	return domain
}

var (
	markdownLink   = regexp.MustCompile(`^\[([^\]]*)\]\(([^)]*)\)$`)
	parenWrapped   = regexp.MustCompile(`^\(([^)]*)\)$`)
	bracketWrapped = regexp.MustCompile(`^\[([^\]]*)\]$`)
)

// CleanMarkdownURL strips the markdown link syntax the backend sometimes
// wraps source URLs in: [text](url), (url) or [url]. For the full link form
// the inner URL wins over the link text. Plain URLs pass through untouched.
func CleanMarkdownURL(url string) string {
	trimmed := strings.TrimSpace(url)
	if m := markdownLink.FindStringSubmatch(trimmed); m != nil {
		if m[2] != "" {
			return m[2]
		}
		return m[1]
	}
	if m := parenWrapped.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	if m := bracketWrapped.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// cellNumber coerces a heterogeneous table cell into a number. JSON decodes
// numbers as float64, but numeric strings occur too; anything else is zero.
func cellNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return 0
}

// cellString coerces a table cell into a string.
func cellString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

// cellStrings coerces a table cell into a string list; used for trailing
// pages_used columns.
func cellStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
