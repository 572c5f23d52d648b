// Package util holds small helpers shared by the embed pipeline packages.
package util

import (
	"html/template"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// MustCompileTemplate parses a template string at startup. Card templates are
// compiled into the binary, so a parse failure is a build defect and exits.
func MustCompileTemplate(name string, funcs template.FuncMap, content string) *template.Template {
	t, err := template.New(name).Funcs(funcs).Parse(content)
	if err != nil {
		slog.Error("failed to compile template", "template", name, "error", err)
		os.Exit(1)
	}
	return t
}

// IsInternalHost reports whether a hostname points at internal infrastructure.
// The resolver fetcher and the media proxy refuse such hosts.
func IsInternalHost(host string) bool {
	host = strings.ToLower(host)
	return strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".internal") ||
		strings.HasSuffix(host, ".onion") ||
		strings.HasSuffix(host, ".localhost")
}

// IsLoopbackHost reports whether a hostname names the local machine.
func IsLoopbackHost(host string) bool {
	host = strings.ToLower(host)
	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		host == "[::1]"
}

// IsPrivateHost combines both checks; anything private never leaves the process.
func IsPrivateHost(host string) bool {
	return IsInternalHost(host) || IsLoopbackHost(host)
}

// HostMatches reports whether host equals base or is a subdomain of it.
func HostMatches(host, base string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return host == base || strings.HasSuffix(host, "."+base)
}

// TruncateText shortens s to at most max runes, appending an ellipsis when
// anything was cut. Cuts on a space where one is near the limit.
func TruncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := runes[:max]
	if idx := strings.LastIndexByte(string(cut), ' '); idx > max/2 {
		cut = []rune(string(cut)[:idx])
	}
	return strings.TrimRight(string(cut), " ") + "…"
}

// trackingParams are query parameters stripped from displayed origin links.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"utm_name":     true,
	"share_id":     true,
	"ref":          true,
	"ref_source":   true,
	"igshid":       true,
	"igsh":         true,
	"si":           true,
}

// StripTrackingParams removes known tracking query parameters from a URL.
// Malformed URLs are returned unchanged.
func StripTrackingParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for name := range q {
		if trackingParams[strings.ToLower(name)] {
			q.Del(name)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// DecodeHTMLEntities decodes the handful of entities that show up in JSON
// payloads carrying pre-escaped URLs (reddit preview images in particular).
func DecodeHTMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
	)
	return replacer.Replace(s)
}
