package follow

import (
	"regexp"
	"strings"

	"github.com/1broseidon/stickyfollow/internal/platform"
)

// Matches reports whether w satisfies the batch filter of cfg. Class and
// process filters are case-insensitive substring tests; title filters are
// case-insensitive regular expressions. An empty or invalid pattern matches
// nothing.
func Matches(cfg Config, w platform.WindowSnapshot) bool {
	return matches(cfg, w, compileTitle)
}

func matches(cfg Config, w platform.WindowSnapshot, compile func(string) *regexp.Regexp) bool {
	pattern := cfg.FilterPattern
	if strings.TrimSpace(pattern) == "" {
		return false
	}
	switch cfg.FilterKind {
	case WindowClass:
		return containsFold(w.Class, pattern)
	case ProcessName:
		return containsFold(w.Process, pattern)
	case TitleRegex:
		re := compile(pattern)
		if re == nil {
			return false
		}
		return re.MatchString(w.Title)
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// compileTitle returns nil for an invalid pattern.
func compileTitle(pattern string) *regexp.Regexp {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil
	}
	return re
}

// regexCache memoizes compiled title patterns, including failures, so a
// tick does not recompile the same pattern for every window.
type regexCache map[string]*regexp.Regexp

func (c regexCache) compile(pattern string) *regexp.Regexp {
	if re, ok := c[pattern]; ok {
		return re
	}
	re := compileTitle(pattern)
	c[pattern] = re
	return re
}

// SuggestFilter proposes a filter pattern that selects w for the given
// kind. Titles are escaped so they match literally.
func SuggestFilter(w platform.WindowSnapshot, kind FilterKind) string {
	switch kind {
	case ProcessName:
		return w.Process
	case TitleRegex:
		if w.Title == "" {
			return ""
		}
		return regexp.QuoteMeta(w.Title)
	default:
		return w.Class
	}
}
