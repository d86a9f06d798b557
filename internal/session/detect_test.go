package session

import "testing"

func TestDetectLockdownClient(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		flag      string
		want      bool
	}{
		{"plain chrome", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0", "", false},
		{"seb full marker", "Mozilla/5.0 SafeExamBrowser/3.5.0 (Windows)", "", true},
		{"seb short marker", "Mozilla/5.0 SEB/3.5", "", true},
		{"marker case insensitive", "mozilla safeexambrowser", "", true},
		{"flag set", "Mozilla/5.0 Chrome/120.0", "1", true},
		{"flag other value", "Mozilla/5.0 Chrome/120.0", "true", false},
		{"empty everything", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLockdownClient(tt.userAgent, tt.flag); got != tt.want {
				t.Errorf("DetectLockdownClient(%q, %q) = %v, want %v", tt.userAgent, tt.flag, got, tt.want)
			}
		})
	}
}
