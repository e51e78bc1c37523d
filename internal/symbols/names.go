package symbols

import "golang.org/x/text/unicode/norm"

// Canonical returns the NFC form of name.
func Canonical(name string) string {
	if norm.NFC.IsNormalString(name) {
		return name
	}
	return norm.NFC.String(name)
}
