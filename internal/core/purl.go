package core

import (
	"fmt"
	"net/url"

	"github.com/git-pkgs/purl"
)

// PackageURL returns the generic Package URL for an ethPM package release,
// e.g. "pkg:generic/owned@1.0.0". The result is checked with the purl parser.
func PackageURL(name, version string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("package URL: empty package name")
	}

	s := "pkg:generic/" + url.PathEscape(name)
	if version != "" {
		s += "@" + url.PathEscape(version)
	}

	if _, err := purl.Parse(s); err != nil {
		return "", fmt.Errorf("package URL %s: %w", s, err)
	}
	return s, nil
}
