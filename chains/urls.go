package chains

import (
	"fmt"
	"strings"
)

// URLBuilder constructs block explorer URLs for a chain.
type URLBuilder interface {
	Address(address string) string
	Transaction(hash string) string
	Block(block string) string
}

// ExplorerURLs provides an etherscan-style URLBuilder for an explorer host.
type ExplorerURLs struct {
	Host string
}

func (u *ExplorerURLs) base() string {
	host := strings.TrimSuffix(u.Host, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

func (u *ExplorerURLs) Address(address string) string {
	if address == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s/address/%s", u.base(), address)
}

func (u *ExplorerURLs) Transaction(hash string) string {
	if hash == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s/tx/%s", u.base(), hash)
}

func (u *ExplorerURLs) Block(block string) string {
	if block == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s/block/%s", u.base(), block)
}

// BuildURLs returns a map of all non-empty explorer URLs for a deployment.
// Keys are "address", "transaction" and "block".
func BuildURLs(urls URLBuilder, address, transaction, block string) map[string]string {
	result := make(map[string]string)
	if v := urls.Address(address); v != "" {
		result["address"] = v
	}
	if v := urls.Transaction(transaction); v != "" {
		result["transaction"] = v
	}
	if v := urls.Block(block); v != "" {
		result["block"] = v
	}
	return result
}
