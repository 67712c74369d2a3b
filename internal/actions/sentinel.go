package actions

import (
	"fmt"
	"regexp"
	"strings"
)

// Planners and chat frontends treat handler results matching these patterns
// as job launches and await the job's terminal result instead of returning
// the handle to the user. Job IDs are any non-empty token; anchoring on the
// launch phrase keeps handler prose from matching.
var jobSentinelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^started job with id:?\s*(\S+)`),
	regexp.MustCompile(`(?i)^job started with id:?\s*(\S+)`),
	regexp.MustCompile(`(?i)^launched job\s+(\S+)`),
}

// JobSentinel formats the canonical job-launch result for a handler that
// submitted a job
func JobSentinel(jobID string) string {
	return fmt.Sprintf("Started job with ID: %s", jobID)
}

// JobIDFromResult extracts a job ID from a handler result when the result is
// a job-launch sentinel string.
func JobIDFromResult(result interface{}) (string, bool) {
	s, ok := result.(string)
	if !ok {
		return "", false
	}
	for _, p := range jobSentinelPatterns {
		if m := p.FindStringSubmatch(s); m != nil {
			// Trailing sentence punctuation is not part of the ID
			if id := strings.TrimRight(m[1], ".,;:!"); id != "" {
				return id, true
			}
		}
	}
	return "", false
}
