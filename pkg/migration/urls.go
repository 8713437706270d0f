package migration

import "strings"

// splitCollectionURL splits a collection URL such as
// "https://host/api/v1/projects" into its base ("https://host/api/v1") and
// resource type ("projects"), used to derive the sibling collection URL a
// referent fetch or lookup query targets (`<base>/<resource_type>`).
func splitCollectionURL(targetURL string) (base, resourceType string) {
	trimmed := strings.TrimRight(targetURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "", trimmed
	}
	return trimmed[:idx], trimmed[idx+1:]
}
