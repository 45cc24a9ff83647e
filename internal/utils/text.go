package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// NormalizeText trims surrounding whitespace and converts s to NFC, so a
// composed and a decomposed "é" count as the same single character.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CharCount counts user-perceived characters as runes after NFC normalization.
func CharCount(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}

// NormalizeInviteCode upper-cases an invite code and restores the hyphen
// when it was typed as eight bare characters.
func NormalizeInviteCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, " ", "")
	if len(code) == 8 && !strings.Contains(code, "-") {
		code = code[:4] + "-" + code[4:]
	}
	return code
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidUsername reports whether username is 3-20 letters, digits or underscores.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// ValidEmail does a shallow shape check; delivery is the real test.
func ValidEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".") && !strings.ContainsAny(email, " \t\r\n")
}
