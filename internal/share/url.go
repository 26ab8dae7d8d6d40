package share

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildShareURL assembles the link recipients open to import a bill. The
// share id and the exported session key travel in the URL fragment, which
// HTTP clients never transmit, so the relay sees neither.
func BuildShareURL(baseURL, shareID, exportedKey string) string {
	return fmt.Sprintf("%s/#share=%s&key=%s",
		strings.TrimSuffix(baseURL, "/"), url.QueryEscape(shareID), url.QueryEscape(exportedKey))
}

// ParseShareURL extracts the share id and exported key from a share link.
func ParseShareURL(link string) (shareID, exportedKey string, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse share link: %w", err)
	}
	values, err := url.ParseQuery(u.EscapedFragment())
	if err != nil {
		return "", "", fmt.Errorf("failed to parse share link fragment: %w", err)
	}
	shareID = values.Get("share")
	exportedKey = values.Get("key")
	if shareID == "" || exportedKey == "" {
		return "", "", fmt.Errorf("share link carries no share id or key")
	}
	return shareID, exportedKey, nil
}
