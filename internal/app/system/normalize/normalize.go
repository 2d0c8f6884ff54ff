// Package normalize trims and canonicalizes user-supplied strings before
// they are stored or compared.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Name trims a display name, preserving case.
func Name(s string) string { return strings.TrimSpace(s) }

// Role lowercases and trims a role name.
func Role(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Amount trims a money amount and drops thousands separators and a
// leading dollar or pound sign, so "$1,500" stores as "1500".
func Amount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$£")
	return strings.ReplaceAll(s, ",", "")
}

// GroupID trims a ?group= filter. "all" means no filter and maps to "".
func GroupID(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}
