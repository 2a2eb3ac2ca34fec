// Package merchant canonicalizes raw bank merchant strings into stable
// grouping keys. Bank descriptors carry card suffixes, reference
// numbers, store locations and processor noise ("NETFLIX.COM #12345
// CA 94103"); grouping only works once all of that is stripped.
package merchant

import (
	"regexp"
	"strings"
)

// PeerApp is a known peer-payment app. Every descriptor mentioning the
// app collapses to one fixed label per app; the apps are never merged
// with each other.
type PeerApp struct {
	Token string // uppercase token to search for
	Name  string // display name, e.g. "Zelle"
}

var peerApps = []PeerApp{
	{Token: "ZELLE", Name: "Zelle"},
	{Token: "VENMO", Name: "Venmo"},
	{Token: "CASH APP", Name: "Cash App"},
	{Token: "CASHAPP", Name: "Cash App"},
}

var (
	// Trailing reference/card suffixes: "#1234", "**** 5678", "XXXX1234".
	refSuffixRe    = regexp.MustCompile(`[#*]+\s*\d*\s*$`)
	maskedDigitsRe = regexp.MustCompile(`[X*]{2,}\d*\s*$`)
	digitRunRe     = regexp.MustCompile(`\s+\d{3,}\s*$`)

	// Trailing "<STATE> <ZIP>" or bare zip location suffixes.
	stateZipRe = regexp.MustCompile(`\s+[A-Z]{2}\s+\d{5}(-\d{4})?\s*$`)
	zipRe      = regexp.MustCompile(`\s+\d{5}(-\d{4})?\s*$`)

	spaceRe = regexp.MustCompile(`\s+`)
)

// Processor noise tokens that carry no merchant information.
var noiseTokens = map[string]bool{
	"PURCHASE":  true,
	"DEBIT":     true,
	"POS":       true,
	"ACH":       true,
	"CHECKCARD": true,
}

// Lookup reports whether the raw descriptor mentions a known
// peer-payment app.
func Lookup(raw string) (PeerApp, bool) {
	upper := strings.ToUpper(raw)
	for _, app := range peerApps {
		if strings.Contains(upper, app.Token) {
			return app, true
		}
	}
	return PeerApp{}, false
}

// Key canonicalizes a raw merchant descriptor into an uppercase
// grouping key. Returns "" when nothing usable remains; callers that
// need a non-empty key should use KeyOrFallback.
func Key(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	// Peer-payment apps collapse to one fixed label per app.
	if app, ok := Lookup(s); ok {
		return "PEER TRANSFERS (" + strings.ToUpper(app.Name) + ")"
	}

	// Suffix strips can expose each other ("NETFLIX.COM 800-123 #45"),
	// so repeat until the string stops changing.
	for {
		prev := s
		s = strings.TrimSpace(refSuffixRe.ReplaceAllString(s, ""))
		s = strings.TrimSpace(maskedDigitsRe.ReplaceAllString(s, ""))
		s = strings.TrimSpace(stateZipRe.ReplaceAllString(s, ""))
		s = strings.TrimSpace(zipRe.ReplaceAllString(s, ""))
		s = strings.TrimSpace(digitRunRe.ReplaceAllString(s, ""))
		if s == prev {
			break
		}
	}

	// Drop processor noise tokens word by word.
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if noiseTokens[w] {
			continue
		}
		kept = append(kept, w)
	}
	s = spaceRe.ReplaceAllString(strings.Join(kept, " "), " ")

	return strings.TrimSpace(s)
}

// KeyOrFallback canonicalizes raw, returning the caller-supplied
// fallback label when the descriptor is empty or reduces to nothing.
// The fallback is context-specific ("Other Income", "UNKNOWN", ...)
// so an empty key is never used for grouping.
func KeyOrFallback(raw, fallback string) string {
	if k := Key(raw); k != "" {
		return k
	}
	return fallback
}
