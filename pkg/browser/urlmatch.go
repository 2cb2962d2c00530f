package browser

import (
	"fmt"
	"regexp"
	"strings"
)

// GlobToRegexp converts a URL glob to an anchored regular expression.
// "**" matches any characters including '/', "*" matches any characters
// except '/', "{a,b}" matches either alternative. Everything else is literal.
func GlobToRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	runes := []rune(glob)
	inGroup := false
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '{':
			if inGroup {
				return nil, fmt.Errorf("nested group in glob %q", glob)
			}
			inGroup = true
			b.WriteString("(?:")
		case '}':
			if !inGroup {
				b.WriteString(`\}`)
				continue
			}
			inGroup = false
			b.WriteString(")")
		case ',':
			if inGroup {
				b.WriteString("|")
			} else {
				b.WriteString(",")
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	if inGroup {
		return nil, fmt.Errorf("unterminated group in glob %q", glob)
	}

	b.WriteString("$")
	return regexp.Compile(b.String())
}

// MatchURL reports whether url matches the glob pattern. Invalid patterns
// never match.
func MatchURL(pattern, url string) bool {
	re, err := GlobToRegexp(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(url)
}
