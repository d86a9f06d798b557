package session

import "strings"

// Known lockdown browser user-agent markers.
var lockdownUAMarkers = []string{"safeexambrowser", "seb"}

// DetectLockdownClient reports whether a request plausibly originates from a
// recognized lockdown browser: a known user-agent substring or the explicit
// query flag ("1").
//
// Threat-model boundary: this signal is advisory and trivially spoofable
// client-side, as is any purely client-observed lockdown check. It is a
// deterrent that keeps honest students honest, not a security boundary; real
// enforcement lives in the external lockdown browser itself.
func DetectLockdownClient(userAgent, flag string) bool {
	if flag == "1" {
		return true
	}
	ua := strings.ToLower(userAgent)
	for _, marker := range lockdownUAMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}
