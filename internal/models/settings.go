package models

// Settings are the local installation's preferences. A single row exists per
// store.
type Settings struct {
	// MyDisplayName replaces the MyselfName placeholder in published
	// snapshots so recipients see a real name.
	MyDisplayName string `json:"myDisplayName"`

	// DefaultSplitMode seeds the split mode for new bills.
	DefaultSplitMode SplitMode `json:"defaultSplitMode,omitempty"`

	// NotificationsEnabled gates non-error informational notices.
	NotificationsEnabled bool `json:"notificationsEnabled"`

	UpdatedAt int64 `json:"updatedAt"`
}

// DisplayName returns MyDisplayName or the placeholder when unset.
func (s *Settings) DisplayName() string {
	if s == nil || s.MyDisplayName == "" {
		return MyselfName
	}
	return s.MyDisplayName
}
