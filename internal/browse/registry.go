// Package browse loads the registry, package and release listings shown on
// the browse pages. Registry contracts are read through a ChainClient
// supplied by the host; this package never talks to a node itself.
package browse

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethpm/explorer/internal/core"
)

// ChainClient reads an ERC1319 package registry on one chain.
type ChainClient interface {
	Connected(ctx context.Context) bool
	Owner(ctx context.Context, registry common.Address) (common.Address, error)
	PackageNames(ctx context.Context, registry common.Address) ([]string, error)
	ReleaseCount(ctx context.Context, registry common.Address, pkg string) (int, error)
	Releases(ctx context.Context, registry common.Address, pkg string) ([]core.Release, error)
}

// Registry is a loaded package registry.
type Registry struct {
	Address      string // EIP-55 checksum form
	Owner        string
	HumanOwner   string // 0xabcd..wxyz
	PackageCount int
	Packages     []core.Package
}

// LoadRegistry reads the owner and package list of the registry at address.
// Release counts are fetched in parallel, at most concurrency at a time.
func LoadRegistry(ctx context.Context, client ChainClient, address string, concurrency int) (*Registry, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid registry address %q", address)
	}
	addr := common.HexToAddress(address)

	owner, err := client.Owner(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("reading owner of registry %s: %w", addr.Hex(), err)
	}

	names, err := client.PackageNames(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("listing packages of registry %s: %w", addr.Hex(), err)
	}

	counts := core.Bulk(ctx, names, concurrency, func(ctx context.Context, name string) (int, error) {
		return client.ReleaseCount(ctx, addr, name)
	})

	r := &Registry{
		Address:      addr.Hex(),
		Owner:        owner.Hex(),
		HumanOwner:   HumanizeAddress(owner),
		PackageCount: len(names),
		Packages:     make([]core.Package, 0, len(names)),
	}

	var missing []string
	for _, name := range names {
		n, ok := counts[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		r.Packages = append(r.Packages, core.Package{Name: name, ReleaseCount: n})
	}
	if len(missing) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("release counts unavailable for %s", strings.Join(missing, ", "))
	}
	return r, nil
}

// HumanizeAddress shortens an address to its first and last four hex digits.
func HumanizeAddress(a common.Address) string {
	h := hex.EncodeToString(a.Bytes())
	return "0x" + h[:4] + ".." + h[len(h)-4:]
}
