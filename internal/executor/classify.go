package executor

import (
	"regexp"
	"strings"
)

// Outcome of one execution, as seen by the run-loop.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeQuota   Outcome = "quota"
	OutcomeFailure Outcome = "failure"
)

// Result is the classified execution outcome. ResetHint carries the raw
// line that triggered quota detection, for resume-time parsing upstream.
type Result struct {
	Outcome   Outcome
	Text      string
	ResetHint string
	Usage     Usage
}

// quotaPatterns are matched against the tool's free-text output to detect
// quota exhaustion. The tool reports this in natural language and the exact
// phrasing is not guaranteed stable across versions, so all matching lives
// here and nowhere else.
var quotaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)usage limit reached`),
	regexp.MustCompile(`(?i)rate limit(?:ed| exceeded| reached)`),
	regexp.MustCompile(`(?i)quota (?:exhausted|exceeded)`),
	regexp.MustCompile(`(?i)out of (?:usage|credits)`),
	regexp.MustCompile(`(?i)limit will reset`),
	regexp.MustCompile(`(?i)try again (?:at|in|after)`),
}

// Classify turns a tool response into an Outcome. A clean exit is success;
// a quota pattern anywhere in the output is quota exhaustion regardless of
// exit code; anything else non-zero is a recoverable failure.
func Classify(resp *Response) Result {
	res := Result{Text: resp.Text, Usage: resp.Usage}

	if hint, ok := findQuotaLine(resp.Text); ok {
		res.Outcome = OutcomeQuota
		res.ResetHint = hint
		return res
	}

	if resp.ExitCode != 0 {
		res.Outcome = OutcomeFailure
		return res
	}

	res.Outcome = OutcomeSuccess
	return res
}

// findQuotaLine returns the first line matching a quota pattern.
func findQuotaLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		for _, re := range quotaPatterns {
			if re.MatchString(line) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}
