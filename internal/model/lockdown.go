package model

// LockdownConfig is the JSON blob handed to the external restricted-browser
// client. The engine only generates and stores it; enforcement of every flag
// below is the lockdown browser's job, never this service's.
type LockdownConfig struct {
	StartURL               string   `json:"startURL"`
	Mode                   string   `json:"mode"`
	AllowURLFilter         bool     `json:"allowURLFilter"`
	WhitelistURL           []string `json:"whitelistURL"`
	AllowSwitchToApps      bool     `json:"allowSwitchToApplications"`
	AllowBrowserToolbar    bool     `json:"allowBrowserWindowToolbar"`
	AllowPrintScreen       bool     `json:"allowPrintScreen"`
	EnablePrivateClipboard bool     `json:"enablePrivateClipboard"`
	AllowCopyPaste         bool     `json:"allowCopyPaste"`
	AllowRightClick        bool     `json:"allowRightClick"`
	ShowTaskBar            bool     `json:"showTaskBar"`
	AllowSpellCheck        bool     `json:"allowSpellCheck"`
	QuitPassword           string   `json:"quitPassword"`
	SettingsPassword       string   `json:"settingsPassword"`
	Notes                  string   `json:"notes"`
}
