package capture

import "strings"

// NormalizeURL prefixes https:// unless the input already carries an http or https scheme
func NormalizeURL(input string) string {
	if hasPrefixFold(input, "http://") || hasPrefixFold(input, "https://") {
		return input
	}
	return "https://" + input
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
