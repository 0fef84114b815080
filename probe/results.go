package probe

// QueryResults holds pre-collected feature-query answers, for callers
// that ran the queries elsewhere (a client-side collector, a recorded
// fixture) and want them classified offline. It keeps the query
// spellings in one place: Query answers exactly the four queries Detect
// issues, and false for anything else.
type QueryResults struct {
	BackdropBlur         bool `json:"backdrop_blur"`
	PrefixedBackdropBlur bool `json:"prefixed_backdrop_blur"`
	BlurSaturate         bool `json:"blur_saturate"`
	Brightness           bool `json:"brightness"`
}

// Query is a FeatureQueryFunc over the recorded results.
func (r QueryResults) Query(property, value string) bool {
	switch {
	case property == propBackdrop && value == valueBlur:
		return r.BackdropBlur
	case property == propBackdropWebKit && value == valueBlur:
		return r.PrefixedBackdropBlur
	case property == propBackdrop && value == valueBlurSaturate:
		return r.BlurSaturate
	case property == propBackdrop && value == valueBrightness:
		return r.Brightness
	}
	return false
}
