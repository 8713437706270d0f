package httpclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseResponse parses the response body as JSON. The collaborator contract
// (spec §6) only ever exchanges JSON-shaped records with source/target
// endpoints, so the XML/binary branches the teacher's version carried for
// its generic plan-step HTTP calls are dropped here.
func ParseResponse(resp *Response) error {
	if len(resp.Body) == 0 {
		return nil
	}

	contentType := strings.ToLower(resp.ContentType)
	if contentType != "" && !strings.Contains(contentType, "json") {
		return fmt.Errorf("unexpected content type %q, expected JSON", resp.ContentType)
	}

	var result any
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	resp.BodyJSON = result
	return nil
}

// IsSuccessStatus returns true if the status code indicates success
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsRetryableStatus returns true if the status code indicates a retryable error
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsRateLimitStatus returns true if the status code indicates rate limiting
func IsRateLimitStatus(statusCode int) bool {
	return statusCode == 429
}
