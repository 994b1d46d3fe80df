package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Endpoint returns the WebSocket URL: ws_url when set, otherwise derived
// from base_url and ws_path.
func (a APIConfig) Endpoint() (string, error) {
	if a.WSURL != "" {
		u, err := url.Parse(a.WSURL)
		if err != nil {
			return "", fmt.Errorf("parse ws_url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return "", fmt.Errorf("ws_url scheme must be ws or wss, got %q", u.Scheme)
		}
		if u.Host == "" {
			return "", errors.New("ws_url has no host")
		}
		return u.String(), nil
	}
	return DeriveWSURL(a.BaseURL, a.WSPath)
}

// DeriveWSURL swaps http→ws / https→wss on baseURL and appends path.
func DeriveWSURL(baseURL, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("base_url is empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base_url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("base_url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("base_url has no host")
	}

	u.Path = strings.TrimRight(u.Path, "/")
	if p := strings.Trim(path, "/"); p != "" {
		u.Path += "/" + p
	}
	u.RawPath = ""
	u.Fragment = ""

	return u.String(), nil
}
