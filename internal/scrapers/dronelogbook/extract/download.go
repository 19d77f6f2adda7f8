package extract

import (
	"regexp"
	"strings"
)

var downloadLinkRegex = regexp.MustCompile(`(?:window\.|document\.)?location(?:\.href)?\s*=\s*['"]([^'"]*/uploadFile/viewFile\.php\?[^'"]*)['"]`)

// DownloadLink returns the file download path assigned to location inside
// a script block of a flight detail page.
func DownloadLink(document string) (string, bool) {
	groups := downloadLinkRegex.FindStringSubmatch(document)
	if groups == nil {
		return "", false
	}
	return DecodeEntities(strings.TrimSpace(groups[1])), true
}

var (
	contentDispositionRegex = regexp.MustCompile(`(?i)filename\*?=(?:UTF-8'')?"?([^";]+)"?`)
	unsafeFilenameRegex     = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// AttachmentFilename reads the filename from a Content-Disposition header.
func AttachmentFilename(header string) (string, bool) {
	groups := contentDispositionRegex.FindStringSubmatch(header)
	if groups == nil {
		return "", false
	}
	name := SafeFilename(groups[1])
	return name, name != ""
}

// SafeFilename strips path separators and anything unusual out of a filename.
func SafeFilename(name string) string {
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	name = unsafeFilenameRegex.ReplaceAllString(strings.TrimSpace(name), "_")
	return strings.Trim(name, "._")
}
