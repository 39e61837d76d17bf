package dom

import "strings"

// ---------------------------------------------------------------------------
// URL sanitization
// ---------------------------------------------------------------------------

// Sanitizer rewrites URL-carrying attribute values whose scheme can execute
// script. Blocked values are prefixed with "unsafe:" rather than dropped, so
// the output stays inspectable. Trusting attribute writes bypass it.
type Sanitizer struct {
	blocked map[string]bool
}

// NewSanitizer returns a sanitizer blocking the script-capable schemes,
// extended by any extra scheme names.
func NewSanitizer(extra ...string) *Sanitizer {
	blocked := map[string]bool{
		"javascript": true,
		"vbscript":   true,
	}
	for _, scheme := range extra {
		blocked[strings.ToLower(scheme)] = true
	}
	return &Sanitizer{blocked: blocked}
}

// SanitizeURL returns value unchanged when its scheme is safe, and
// "unsafe:"-prefixed otherwise. data: URIs are allowed only for images.
func (s *Sanitizer) SanitizeURL(value string) string {
	scheme := urlScheme(value)
	switch {
	case scheme == "":
		return value
	case scheme == "data":
		if strings.HasPrefix(strings.ToLower(afterScheme(value)), "image/") {
			return value
		}
		return "unsafe:" + value
	case s.blocked[scheme]:
		return "unsafe:" + value
	default:
		return value
	}
}

// urlScheme extracts the lowercased scheme of value, ignoring the control
// characters and whitespace browsers strip before parsing. An empty result
// means a relative or schemeless URL.
func urlScheme(value string) string {
	var cleaned strings.Builder
	for _, r := range value {
		if r <= ' ' || r == 0x7f {
			continue
		}
		cleaned.WriteRune(r)
	}
	v := cleaned.String()
	for i, r := range v {
		switch r {
		case ':':
			return strings.ToLower(v[:i])
		case '/', '?', '#':
			return ""
		}
	}
	return ""
}

func afterScheme(value string) string {
	if i := strings.IndexByte(value, ':'); i >= 0 {
		return value[i+1:]
	}
	return value
}
