// Package webhookurl converts between a decomposed (host, port, path) webhook
// target and a single absolute URL, and tracks the configuration form's entry mode.
package webhookurl

import (
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrUnparseable is returned when neither strict nor permissive parsing finds a host.
	ErrUnparseable = errors.New("webhookurl: cannot extract host from url")
	// ErrMissingHost is returned when composing without a host.
	ErrMissingHost = errors.New("webhookurl: host is required")
	// ErrEmptyURL is returned when resolving an empty free-form URL.
	ErrEmptyURL = errors.New("webhookurl: url is required")
	// ErrMissingBaseURL is returned in path mode when no base host is configured.
	ErrMissingBaseURL = errors.New("webhookurl: remote experiment base url is not configured")
	// ErrPathNotAllowed is returned in path mode for paths outside the endpoint catalog.
	ErrPathNotAllowed = errors.New("webhookurl: path is not one of the allowed endpoints")
)

// permissive tolerates a missing scheme, e.g. "example.com:8080/run".
var permissive = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.\-]*://)?([^/:?#\s]+)(?::(\d+))?(/[^?#\s]*)?(?:[?#]\S*)?$`)

// Parts is a decomposed URL.
type Parts struct {
	Host string
	Port string
	Path string
}

// IsLocalHost reports whether host is a loopback or local alias.
func IsLocalHost(host string) bool {
	h := strings.ToLower(strings.Trim(strings.TrimSpace(host), "[]"))
	switch h {
	case "localhost", "127.0.0.1", "0.0.0.0", "::1", "host.docker.internal":
		return true
	}
	return strings.HasSuffix(h, ".localhost")
}

// Scheme returns http for local hosts and https otherwise.
func Scheme(host string) string {
	if IsLocalHost(host) {
		return "http"
	}
	return "https"
}

// Compose builds scheme://host[:port]path.
func Compose(host, port, path string) string {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	path = strings.TrimSpace(path)

	authority := host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		authority = "[" + host + "]"
	}
	if port != "" {
		authority = net.JoinHostPort(strings.Trim(authority, "[]"), port)
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Scheme(host) + "://" + authority + path
}

// Parse splits raw into host, port and path. Strict URL parsing is tried
// first; a permissive pattern handles input without a scheme.
func Parse(raw string) (Parts, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Parts{}, ErrUnparseable
	}

	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return Parts{Host: u.Hostname(), Port: u.Port(), Path: u.Path}, nil
	}

	m := permissive.FindStringSubmatch(raw)
	if m == nil {
		return Parts{}, ErrUnparseable
	}
	return Parts{Host: m[1], Port: m[2], Path: m[3]}, nil
}
