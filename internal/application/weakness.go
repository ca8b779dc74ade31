package application

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var sequentialPattern = regexp.MustCompile(
	`(?i)(012|123|234|345|456|567|678|789|890|abc|bcd|cde|def|efg|fgh|ghi|hij|ijk|jkl|klm|lmn|mno|nop|opq|pqr|qrs|rst|stu|tuv|uvw|vwx|wxy|xyz|qwe|wer|ert|rty|tyu|yui|uio|iop|asd|sdf|dfg|fgh|ghj|hjk|jkl|zxc|xcv|cvb|vbn|bnm)`,
)

// PasswordWeakness rates secret from 0 (strong) to 100 (weakest). It is a
// coarse, deterministic heuristic defined for every input.
func PasswordWeakness(secret string) int {
	if secret == "" {
		return 100
	}

	weakness := 0

	switch n := utf8.RuneCountInString(secret); {
	case n < 8:
		weakness += 30
	case n < 12:
		weakness += 15
	}

	switch classes := characterClasses(secret); {
	case classes < 2:
		weakness += 25
	case classes < 3:
		weakness += 15
	case classes < 4:
		weakness += 5
	}

	lower := strings.ToLower(secret)
	for _, common := range CommonPasswords {
		if strings.Contains(lower, common) {
			weakness += 40
			break
		}
	}

	if sequentialPattern.MatchString(secret) {
		weakness += 20
	}

	if hasRepeatedRun(secret, 3) {
		weakness += 15
	}

	return min(weakness, 100)
}

// characterClasses counts which of lowercase, uppercase, digit and symbol
// appear in s. Uncased letters count as lowercase.
func characterClasses(s string) int {
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			lower = true
		default:
			symbol = true
		}
	}

	n := 0
	for _, present := range []bool{lower, upper, digit, symbol} {
		if present {
			n++
		}
	}
	return n
}

// hasRepeatedRun reports whether s contains n or more identical consecutive runes.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}
