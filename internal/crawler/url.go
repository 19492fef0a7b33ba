package crawler

import (
	"fmt"
	"strings"
)

// DefaultBaseURL is the mobile site whose markup the extractors target.
const DefaultBaseURL = "https://m.the-numbers.com"

const listingPathFormat = "/box-office-records/worldwide/all-movies/cumulative/released-in-%d"

// ListingURL builds the cumulative worldwide listing URL for year.
func ListingURL(base string, year int) string {
	return strings.TrimRight(base, "/") + fmt.Sprintf(listingPathFormat, year)
}

// DetailURL joins base with a site-relative path captured from a listing.
// Absolute hrefs are returned unchanged.
func DetailURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base = strings.TrimRight(base, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
