package reconcile

import "unicode"

// isWordRune reports whether r belongs inside a token. Combining marks count
// as word runes so decomposed vowels such as "ī" do not split a word.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

// tokenBoundary reports whether needle at offset k in haystack is a whole
// token. A boundary is only required on a side where the needle itself starts
// or ends with a word rune.
func tokenBoundary(haystack, needle []rune, k int) bool {
	n := len(needle)
	if isWordRune(needle[0]) && k > 0 && isWordRune(haystack[k-1]) {
		return false
	}
	if isWordRune(needle[n-1]) && k+n < len(haystack) && isWordRune(haystack[k+n]) {
		return false
	}
	return true
}
