// Package ident resolves raw manifest identifiers into canonical content URIs.
package ident

import (
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/ethpm/explorer/internal/core"
)

// Scheme is the URI scheme of content-addressed manifests.
const Scheme = "ipfs"

const prefix = Scheme + "://"

// DefaultGateway is the HTTP gateway prefix content hashes are appended to.
const DefaultGateway = "https://ipfs.io/ipfs/"

// URI is a canonical content URI of the form ipfs://<cid>.
type URI string

// Resolve turns a bare content hash or an ipfs:// URI into a canonical URI.
// Resolving a canonical URI returns it unchanged.
func Resolve(raw string) (URI, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &core.IdentifierError{Raw: raw, Reason: "empty"}
	}

	hash := s
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		hash = s[len(prefix):]
		// ipfs://<cid>/path and ipfs://<cid>/ name the root object
		if i := strings.IndexByte(hash, '/'); i >= 0 {
			hash = hash[:i]
		}
	}
	if hash == "" {
		return "", &core.IdentifierError{Raw: raw, Reason: "missing content hash"}
	}

	c, err := cid.Decode(hash)
	if err != nil {
		return "", &core.IdentifierError{Raw: raw, Reason: err.Error()}
	}
	return URI(prefix + c.String()), nil
}

// MustResolve is like Resolve but panics on error. Intended for tests and
// package-level constants.
func MustResolve(raw string) URI {
	u, err := Resolve(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// Hash returns the content hash part of the URI.
func (u URI) Hash() string {
	return strings.TrimPrefix(string(u), prefix)
}

// GatewayURL returns the HTTP URL of the content behind gateway.
// An empty gateway means DefaultGateway.
func (u URI) GatewayURL(gateway string) string {
	if gateway == "" {
		gateway = DefaultGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return gateway + u.Hash()
}

func (u URI) String() string {
	return string(u)
}

// IsContentURI reports whether s uses the ipfs scheme. It does not validate
// the hash; use Resolve for that.
func IsContentURI(s string) bool {
	return len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Humanize shortens a content URI for display by keeping the first and last
// four characters of the hash, e.g. ipfs://QmPX..qb7Q. Strings that are not
// content URIs are returned unchanged.
func Humanize(s string) string {
	if !IsContentURI(s) {
		return s
	}
	hash := s[len(prefix):]
	if len(hash) <= 8 {
		return s
	}
	return prefix + hash[:4] + ".." + hash[len(hash)-4:]
}
