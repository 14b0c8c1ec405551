package cryptox

import (
	"regexp"
	"strings"
)

// Strength is the outcome of evaluating a candidate password.
// Valid is true only when there are no reject reasons and the clamped
// score reaches 4.
type Strength struct {
	Valid   bool
	Score   int
	Reasons []string
}

const symbolSet = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

var (
	lowerRe  = regexp.MustCompile(`[a-z]`)
	upperRe  = regexp.MustCompile(`[A-Z]`)
	digitRe  = regexp.MustCompile(`\d`)
	commonRe = regexp.MustCompile(`(?i)123|abc|qwe|password|admin`)
)

// EvaluatePassword scores a password between 0 and 5 using a fixed,
// deterministic rule set. It is advisory to callers presenting feedback
// and mandatory at registration.
func EvaluatePassword(password string) Strength {
	var reasons []string
	score := 0

	switch {
	case len(password) < 8:
		reasons = append(reasons, "must be at least 8 characters long")
	case len(password) >= 12:
		score += 2
	default:
		score++
	}

	if !lowerRe.MatchString(password) {
		reasons = append(reasons, "must contain at least one lowercase letter")
	} else {
		score++
	}

	if !upperRe.MatchString(password) {
		reasons = append(reasons, "must contain at least one uppercase letter")
	} else {
		score++
	}

	if !digitRe.MatchString(password) {
		reasons = append(reasons, "must contain at least one digit")
	} else {
		score++
	}

	if !strings.ContainsAny(password, symbolSet) {
		reasons = append(reasons, "must contain at least one special character")
	} else {
		score += 2
	}

	if hasTripleRepeat(password) {
		reasons = append(reasons, "must not contain three identical consecutive characters")
		score--
	}

	if commonRe.MatchString(password) {
		reasons = append(reasons, "must not contain common patterns")
		score -= 2
	}

	score = max(0, min(5, score))

	return Strength{
		Valid:   len(reasons) == 0 && score >= 4,
		Score:   score,
		Reasons: reasons,
	}
}

// hasTripleRepeat reports whether the string contains a run of three or
// more identical characters. regexp cannot express this without
// backreferences, so it is checked by hand.
func hasTripleRepeat(s string) bool {
	runes := []rune(s)
	for i := 2; i < len(runes); i++ {
		if runes[i] == runes[i-1] && runes[i] == runes[i-2] {
			return true
		}
	}
	return false
}
