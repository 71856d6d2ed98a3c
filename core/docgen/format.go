package docgen

import (
	"fmt"
	"strings"
)

// Format is an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// IsValidFormat checks if a format is recognized.
func IsValidFormat(f Format) bool {
	switch f {
	case FormatJSON, FormatYAML, FormatText, FormatMarkdown:
		return true
	default:
		return false
	}
}

// ParseFormat accepts a format name, case-insensitively, plus the short
// aliases yml, txt and md.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "yml":
		f = FormatYAML
	case "txt":
		f = FormatText
	case "md":
		f = FormatMarkdown
	}
	if !IsValidFormat(f) {
		return "", fmt.Errorf("unknown format %q (want json, yaml, text or markdown)", s)
	}
	return f, nil
}
