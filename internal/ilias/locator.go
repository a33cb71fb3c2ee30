// Package ilias models ILIAS resources: parsed links, the closed set of
// resource kinds, the classifier that maps one onto the other, and the
// rate-limited HTTP client used to talk to the platform.
package ilias

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// BaseURL is the root of the ILIAS installation. Relative hrefs discovered
// while crawling are resolved against it.
const BaseURL = "https://ilias.studium.kit.edu/"

// ErrInvalidLocator reports a discovered href that cannot be parsed into an
// absolute URL even after resolution against BaseURL.
var ErrInvalidLocator = errors.New("invalid locator")

// Locator is the parsed form of a discovered hyperlink. Only the query
// parameters ILIAS routing cares about are retained; everything else is
// dropped. A Locator is immutable after construction, except that the
// classifier may fill in RefID when it extracts one from Target.
type Locator struct {
	// Raw is the full absolute URL.
	Raw string

	BaseClass  string
	CmdClass   string
	CmdNode    string
	Cmd        string
	ForwardCmd string
	ThrPK      string
	PosPK      string
	RefID      string
	Target     string
	File       string
}

// ParseLocator resolves href against BaseURL if needed and extracts the
// recognized query parameters. The last occurrence of a duplicated key wins.
func ParseLocator(href string) (*Locator, error) {
	raw := href
	if !strings.HasPrefix(href, BaseURL) {
		raw = BaseURL + href
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocator, href)
	}
	loc := &Locator{Raw: u.String()}
	for key, values := range u.Query() {
		value := values[len(values)-1]
		switch key {
		case "baseClass":
			loc.BaseClass = value
		case "cmdClass":
			loc.CmdClass = value
		case "cmdNode":
			loc.CmdNode = value
		case "cmd":
			loc.Cmd = value
		case "forwardCmd":
			loc.ForwardCmd = value
		case "thr_pk":
			loc.ThrPK = value
		case "pos_pk":
			loc.PosPK = value
		case "ref_id":
			loc.RefID = value
		case "target":
			loc.Target = value
		case "file":
			loc.File = value
		}
	}
	return loc, nil
}

// RawLocator wraps an already-resolved URL, e.g. a direct media address,
// without any query parsing. All routing fields stay empty.
func RawLocator(raw string) *Locator {
	return &Locator{Raw: raw}
}
