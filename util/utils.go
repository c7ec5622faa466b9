package util

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
	"unicode"
)

const DefaultCallbackURL = "/dashboard"

func formatTime(format string, t time.Time) string {
	return t.Format(format)
}

// Slugify lowercases s and joins its ASCII letter and digit runs with single
// dashes. Everything else, including non-ASCII letters, is a separator.
func Slugify(s string) string {
	var buf bytes.Buffer
	pendingDash := false

	for _, r := range s {
		switch {
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && buf.Len() > 0 {
				buf.WriteByte('-')
			}
			pendingDash = false
			buf.WriteRune(unicode.ToLower(r))
		default:
			pendingDash = true
		}
	}

	return buf.String()
}

// SlugCandidate returns the n-th slug to try for base: base itself for n == 0,
// then base-1, base-2, ...
func SlugCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// SafeCallbackURL keeps post-login redirects on this site. Anything that is
// not an absolute path (including protocol-relative "//host") falls back to
// the dashboard.
func SafeCallbackURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return DefaultCallbackURL
	}
	return raw
}

// CallbackURLFromQuery reads callbackUrl, accepting the callbackURL spelling
// as well.
func CallbackURLFromQuery(q url.Values) string {
	raw := q.Get("callbackUrl")
	if raw == "" {
		raw = q.Get("callbackURL")
	}
	return SafeCallbackURL(raw)
}

// TrimPtr trims a optional string and drops it when blank.
func TrimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// CleanList trims every entry and drops blanks; an empty result is nil.
func CleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var TemplateFuncs = template.FuncMap{
	// Time functions
	"now":        time.Now,
	"formatTime": formatTime,

	// String functions
	"uppercase": strings.ToUpper,
	"lowercase": strings.ToLower,
	"slugify":   Slugify,
}
