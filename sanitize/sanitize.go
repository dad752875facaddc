// Package sanitize cleans request metadata before it is stored.
package sanitize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>?`)
	scriptPattern     = regexp.MustCompile(`(?is)<(script|style)[^>]*?>.*?</(script|style)>`)
	octetPattern      = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
	whitespacePattern = regexp.MustCompile(`[\r\n\t ]+`)
	urlStripPattern   = regexp.MustCompile(`[^a-zA-Z0-9\-~+_.?#=!&;,/:%@$|*'()\[\]\x{80}-\x{10FFFF}]`)
)

var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"ftp":    true,
	"ftps":   true,
	"mailto": true,
	"news":   true,
	"irc":    true,
	"gopher": true,
	"nntp":   true,
	"feed":   true,
	"telnet": true,
	"mms":    true,
	"rtsp":   true,
	"sms":    true,
	"svn":    true,
	"tel":    true,
	"fax":    true,
	"xmpp":   true,
	"webcal": true,
	"urn":    true,
}

// TextField reduces s to a single line of plain text: invalid UTF-8 is
// rejected, tags and percent-encoded octets are removed and whitespace runs
// collapse to one space.
func TextField(s string) string {
	if s == "" || !utf8.ValidString(s) {
		return ""
	}

	if strings.Contains(s, "<") {
		s = scriptPattern.ReplaceAllString(s, "")
		s = tagPattern.ReplaceAllString(s, "")
	}

	for {
		stripped := octetPattern.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// URL returns s when it is a usable absolute or root-relative URL with an
// allowed scheme, and "" otherwise. Characters that never belong in a URL are
// dropped first.
func URL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, " ", "%20")
	s = urlStripPattern.ReplaceAllString(s, "")
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}

	if u.Scheme == "" {
		// Scheme-less values are only kept when they are root-relative or
		// look like a bare host.
		if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "#") || strings.HasPrefix(s, "?") {
			return s
		}
		if strings.Contains(strings.SplitN(s, "/", 2)[0], ".") {
			return "http://" + s
		}
		return ""
	}

	if !allowedSchemes[strings.ToLower(u.Scheme)] {
		return ""
	}

	return s
}
