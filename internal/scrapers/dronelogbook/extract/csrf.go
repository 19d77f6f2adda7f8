package extract

import (
	"regexp"
	"strings"
)

// CSRFCookieName is the name the upstream uses for its anti-forgery cookie and form field.
const CSRFCookieName = "CSRF_Sec_Token"

var hexTokenRegex = regexp.MustCompile(`(?i)^[a-f0-9]{32,}$`)

// LooksLikeToken reports whether value is a long hexadecimal token.
func LooksLikeToken(value string) bool {
	return hexTokenRegex.MatchString(value)
}

// IsCSRFCookieName reports whether a cookie name looks like it carries the
// anti-forgery token.
func IsCSRFCookieName(name string) bool {
	if name == CSRFCookieName {
		return true
	}
	lower := strings.ToLower(name)
	return strings.Contains(lower, "csrf") || strings.Contains(lower, "token")
}

var homepageCSRFPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)name=["']CSRF_Sec_Token["']\s+value=["']([a-f0-9]+)["']`),
	regexp.MustCompile(`(?i)value=["']([a-f0-9]+)["']\s+name=["']CSRF_Sec_Token["']`),
	regexp.MustCompile(`(?i)<input[^>]*name=["']csrf[^"']*["'][^>]*value=["']([^"']+)["']`),
	regexp.MustCompile(`(?i)<input[^>]*value=["']([a-f0-9]{32,})["'][^>]*name=["']csrf`),
}

var loginPageCSRFPatterns = []*regexp.Regexp{
	homepageCSRFPatterns[0],
	homepageCSRFPatterns[1],
	regexp.MustCompile(`(?i)CSRF_Sec_Token["'][^>]*value=["']([a-f0-9]+)["']`),
	regexp.MustCompile(`(?i)"CSRF_Sec_Token"[^}]*"([a-f0-9]{32,})"`),
	regexp.MustCompile(`(?i)csrf[^"']*["']([a-f0-9]{32,})["']`),
	homepageCSRFPatterns[2],
	homepageCSRFPatterns[3],
}

var anyHexTokenRegex = regexp.MustCompile(`(?i)[a-f0-9]{32,}`)

func firstGroup(patterns []*regexp.Regexp, document string) (string, bool) {
	for _, pattern := range patterns {
		groups := pattern.FindStringSubmatch(document)
		if groups != nil && groups[1] != "" {
			return groups[1], true
		}
	}
	return "", false
}

// CSRFFromHTML reads the token from the hidden inputs of a regular page.
func CSRFFromHTML(document string) (string, bool) {
	return firstGroup(homepageCSRFPatterns, document)
}

// CSRFFromLoginPage reads the token from the login page, which also
// embeds it in script literals.
func CSRFFromLoginPage(document string) (string, bool) {
	return firstGroup(loginPageCSRFPatterns, document)
}

// AnyHexToken returns the first 32+ character hex run in document.
func AnyHexToken(document string) (string, bool) {
	match := anyHexTokenRegex.FindString(document)
	return match, match != ""
}
