package models

import "os"

// AppSettings is the single settings object the UI edits. Persisted as one
// JSON value next to the ledger; corrupt or missing data degrades to defaults.
type AppSettings struct {
	DriveConnected     bool   `json:"driveConnected"`
	DriveFolderName    string `json:"driveFolderName"`
	AutoSync           bool   `json:"autoSync"`
	EmailNotifications bool   `json:"emailNotifications"`
	GoogleClientID     string `json:"googleClientId,omitempty"`
	GoogleAPIKey       string `json:"googleApiKey,omitempty"`
	GoogleSheetID      string `json:"googleSheetId,omitempty"`
}

func DefaultAppSettings() AppSettings {
	return AppSettings{
		DriveConnected:     false,
		DriveFolderName:    "",
		AutoSync:           false,
		EmailNotifications: true,
		GoogleSheetID:      os.Getenv("GOOGLE_SHEET_ID"),
	}
}
