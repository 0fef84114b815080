// Package probe detects rendering-environment capabilities from two
// injected boundaries: a CSS feature-query function and a user-agent
// string. It never touches a browser itself — the scan package wires
// these boundaries to a live page, tests wire them to synthetic inputs.
//
// Detection is total: an absent boundary means "capability not present",
// never an error.
package probe

import "strings"

// FeatureQueryFunc answers whether the environment supports a CSS
// property with the given value expression, i.e. CSS.supports(property,
// value). Implementations must not panic; returning false is always a
// valid answer.
type FeatureQueryFunc func(property, value string) bool

// Env holds the two ambient boundaries detection reads. Either field may
// be zero: a nil Supports resolves all feature fields to false, an empty
// UserAgent resolves all classification fields to false.
type Env struct {
	Supports  FeatureQueryFunc
	UserAgent string
}

// Snapshot is the immutable result of one detection pass.
type Snapshot struct {
	// SupportsBackdropFilter reports baseline backdrop-filter blur,
	// via either the unprefixed or the -webkit- prefixed property.
	SupportsBackdropFilter bool `json:"supports_backdrop_filter"`

	// SupportsAdvancedBackdropFilter reports combined blur+saturate
	// plus brightness adjustment. Independent of the baseline check:
	// both are queried directly, neither implies the other.
	SupportsAdvancedBackdropFilter bool `json:"supports_advanced_backdrop_filter"`

	IsWebKit bool `json:"is_webkit"`
	IsSafari bool `json:"is_safari"`
	IsMobile bool `json:"is_mobile"`
}

// Feature query spellings. Engines historically honoured only the
// prefixed form of backdrop-filter, so the baseline check ORs both.
const (
	propBackdrop       = "backdrop-filter"
	propBackdropWebKit = "-webkit-backdrop-filter"
	valueBlur          = "blur(10px)"
	valueBlurSaturate  = "blur(20px) saturate(180%)"
	valueBrightness    = "brightness(110%)"
)

// mobileMarkers are matched case-sensitively as substrings of the
// user-agent string.
var mobileMarkers = []string{"Mobile", "Android", "iPhone", "iPad"}

// Detect computes a Snapshot from env. Pure and total: the same env
// always yields the same Snapshot, and no input — including a nil
// feature-query function or empty user agent — produces an error.
func Detect(env Env) Snapshot {
	var s Snapshot

	if q := env.Supports; q != nil {
		s.SupportsBackdropFilter = q(propBackdrop, valueBlur) ||
			q(propBackdropWebKit, valueBlur)
		s.SupportsAdvancedBackdropFilter = q(propBackdrop, valueBlurSaturate) &&
			q(propBackdrop, valueBrightness)
	}

	ua := env.UserAgent
	if ua == "" {
		return s
	}

	s.IsWebKit = strings.Contains(ua, "WebKit")
	// Chrome UAs carry "Safari" too; the exclusion is what tells them apart.
	s.IsSafari = strings.Contains(ua, "Safari") && !strings.Contains(ua, "Chrome")
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			s.IsMobile = true
			break
		}
	}
	return s
}

// EngineLabel summarises a Snapshot's classification fields as a short
// label for storage and log lines: "safari", "webkit", or "other", with
// a "-mobile" suffix when the device class matched.
func EngineLabel(s Snapshot) string {
	label := "other"
	switch {
	case s.IsSafari:
		label = "safari"
	case s.IsWebKit:
		label = "webkit"
	}
	if s.IsMobile {
		label += "-mobile"
	}
	return label
}
