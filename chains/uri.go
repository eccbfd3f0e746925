package chains

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var hex32 = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ChainURI is a parsed BIP122 chain identifier such as
// blockchain://<genesis hash>/block/<block hash>.
type ChainURI struct {
	Genesis      string // 64 hex characters, no 0x prefix
	ResourceType string // "block", "transaction", ...
	ResourceHash string
}

// ParseChainURI parses a BIP122 blockchain URI.
func ParseChainURI(raw string) (ChainURI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ChainURI{}, fmt.Errorf("parsing chain URI: %w", err)
	}
	if u.Scheme != "blockchain" {
		return ChainURI{}, fmt.Errorf("chain URI %q: scheme must be blockchain", raw)
	}
	if !hex32.MatchString(u.Host) {
		return ChainURI{}, fmt.Errorf("chain URI %q: genesis hash must be 64 hex characters", raw)
	}

	c := ChainURI{Genesis: strings.ToLower(u.Host)}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 2 && parts[0] != "" {
		if !hex32.MatchString(parts[1]) {
			return ChainURI{}, fmt.Errorf("chain URI %q: resource hash must be 64 hex characters", raw)
		}
		c.ResourceType = parts[0]
		c.ResourceHash = strings.ToLower(parts[1])
	} else if u.Path != "" && u.Path != "/" {
		return ChainURI{}, fmt.Errorf("chain URI %q: expected /<resource>/<hash>", raw)
	}
	return c, nil
}

// String returns the canonical form of the URI.
func (c ChainURI) String() string {
	if c.ResourceType == "" {
		return "blockchain://" + c.Genesis
	}
	return fmt.Sprintf("blockchain://%s/%s/%s", c.Genesis, c.ResourceType, c.ResourceHash)
}
