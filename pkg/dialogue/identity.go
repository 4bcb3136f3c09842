// Package dialogue holds interview transcripts and the role projection used to
// replay them to either participant.
package dialogue

import "regexp"

// ConsultantIdentity tags every consultant message. No expert may share it.
const ConsultantIdentity = "Transformation_Consultant"

var identityUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// NormalizeIdentity maps a display name to a speaker identity that every
// provider accepts as a participant name. Each rune outside [A-Za-z0-9_-] becomes
// an underscore, so "Dr. Jane Smith" becomes "Dr__Jane_Smith".
func NormalizeIdentity(raw string) string {
	return identityUnsafe.ReplaceAllString(raw, "_")
}

// ExpertIdentity normalizes an expert name and steers it off the consultant's
// identity, so "Transformation Consultant" interviews as "Transformation_Consultant_2".
func ExpertIdentity(name string) string {
	id := NormalizeIdentity(name)
	if id == ConsultantIdentity {
		return id + "_2"
	}
	return id
}
