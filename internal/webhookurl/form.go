package webhookurl

import (
	"fmt"
	"strings"
)

// Mode is how the user enters the webhook target.
type Mode string

const (
	// ModeSplit takes host, optional port and path as separate fields.
	ModeSplit Mode = "split"
	// ModeURL takes a single free-form URL.
	ModeURL Mode = "url"
	// ModePath only lets the user pick a path from the endpoint catalog;
	// host and port come from environment configuration.
	ModePath Mode = "path"
)

// ParseMode maps a request value to a Mode. Empty means ModeURL.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeURL:
		return ModeURL, nil
	case ModeSplit:
		return ModeSplit, nil
	case ModePath:
		return ModePath, nil
	}
	return "", fmt.Errorf("webhookurl: unknown mode %q", s)
}

// Endpoint is one selectable path in path mode.
type Endpoint struct {
	Path        string `yaml:"path" json:"path"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Defaults is the externally supplied configuration used by path mode.
type Defaults struct {
	Host      string
	Port      string
	Endpoints []Endpoint
}

// Configured reports whether a base host is available for path mode.
func (d Defaults) Configured() bool {
	return strings.TrimSpace(d.Host) != ""
}

// Allows reports whether path is in the endpoint catalog.
func (d Defaults) Allows(path string) bool {
	path = normalizePath(path)
	for _, e := range d.Endpoints {
		if normalizePath(e.Path) == path {
			return true
		}
	}
	return false
}

// Form is the state of the webhook configuration form.
type Form struct {
	Mode Mode
	Host string
	Port string
	Path string
	URL  string
}

// SwitchMode re-derives the target mode's fields from the current ones.
// When the target cannot be reconstructed (path mode to URL mode) the field is
// left empty for the user to fill.
func (f Form) SwitchMode(to Mode, d Defaults) Form {
	if f.Mode == to {
		return f
	}
	next := f
	next.Mode = to

	switch to {
	case ModeURL:
		next.URL = ""
		if f.Mode == ModeSplit && strings.TrimSpace(f.Host) != "" {
			next.URL = Compose(f.Host, f.Port, f.Path)
		}
	case ModeSplit:
		switch f.Mode {
		case ModeURL:
			if p, err := Parse(f.URL); err == nil {
				next.Host, next.Port, next.Path = p.Host, p.Port, p.Path
			}
		case ModePath:
			next.Host, next.Port = d.Host, d.Port
		}
	case ModePath:
		if f.Mode == ModeURL {
			if p, err := Parse(f.URL); err == nil {
				next.Path = p.Path
			}
		}
	}
	return next
}

// Resolve returns the absolute URL the form describes.
func (f Form) Resolve(d Defaults) (string, error) {
	switch f.Mode {
	case ModeSplit:
		if strings.TrimSpace(f.Host) == "" {
			return "", ErrMissingHost
		}
		return Compose(f.Host, f.Port, f.Path), nil
	case ModePath:
		if !d.Configured() {
			return "", ErrMissingBaseURL
		}
		if !d.Allows(f.Path) {
			return "", ErrPathNotAllowed
		}
		return Compose(d.Host, d.Port, normalizePath(f.Path)), nil
	default:
		raw := strings.TrimSpace(f.URL)
		if raw == "" {
			return "", ErrEmptyURL
		}
		if _, err := Parse(raw); err != nil {
			return "", err
		}
		return raw, nil
	}
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
