package ilias

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
)

// NewSessionClient builds an http.Client carrying the session cookies saved
// in sessionFile, one "name=value" pair per line. Establishing the session
// in the first place (the federated login handshake) happens outside this
// tool; we only re-use its cookies.
func NewSessionClient(sessionFile string) (*http.Client, error) {
	data, err := os.ReadFile(sessionFile)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	cookies, err := parseSessionCookies(string(data))
	if err != nil {
		return nil, err
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("session file %s contains no cookies", sessionFile)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	base, err := url.Parse(BaseURL)
	if err != nil {
		return nil, err
	}
	jar.SetCookies(base, cookies)
	return &http.Client{Jar: jar}, nil
}

func parseSessionCookies(data string) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed session line %q", line)
		}
		cookies = append(cookies, &http.Cookie{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return cookies, nil
}
