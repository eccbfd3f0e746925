package browse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ethpm/explorer/chains"
	"github.com/ethpm/explorer/internal/core"
)

// Clients maps chain ids to the client reading that chain.
type Clients map[string]ChainClient

// View is the context of the index and browse pages.
type View struct {
	ChainID        string
	ChainName      string
	Connected      bool
	ActiveRegistry *Registry
}

// Browser builds browse page contexts from the chain table and clients.
type Browser struct {
	table       *chains.Table
	clients     Clients
	concurrency int
	logger      *zap.Logger
}

// NewBrowser returns a Browser. A nil logger discards output.
func NewBrowser(table *chains.Table, clients Clients, concurrency int, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = core.DefaultConcurrency
	}
	return &Browser{table: table, clients: clients, concurrency: concurrency, logger: logger}
}

func (b *Browser) client(chainID string) (ChainClient, error) {
	c, ok := b.clients[chainID]
	if !ok {
		return nil, &core.ChainError{Key: chainID}
	}
	return c, nil
}

// IndexContext is the landing page view. An empty chainID selects
// chains.DefaultChainID.
func (b *Browser) IndexContext(ctx context.Context, chainID string) (View, error) {
	if chainID == "" {
		chainID = chains.DefaultChainID
	}
	entry, err := b.table.ByChainID(chainID)
	if err != nil {
		return View{}, err
	}
	client, err := b.client(chainID)
	if err != nil {
		return View{}, err
	}
	return View{ChainID: chainID, ChainName: entry.Name, Connected: client.Connected(ctx)}, nil
}

// BrowseContext is the view of /browse/<chain>/<registry>. Unknown chain
// names fail with core.ErrUnknownChain. The registry is loaded only when
// registryAddr is a hex address; anything else leaves ActiveRegistry nil.
func (b *Browser) BrowseContext(ctx context.Context, chainName, registryAddr string) (View, error) {
	entry, err := b.table.ByName(chainName)
	if err != nil {
		return View{}, err
	}
	client, err := b.client(entry.ChainID)
	if err != nil {
		return View{}, err
	}

	v := View{ChainID: entry.ChainID, ChainName: entry.Name, Connected: client.Connected(ctx)}
	if !common.IsHexAddress(registryAddr) {
		return v, nil
	}

	reg, err := LoadRegistry(ctx, client, registryAddr, b.concurrency)
	if err != nil {
		b.logger.Warn("loading registry failed",
			zap.String("chain", entry.Name),
			zap.String("registry", registryAddr),
			zap.Error(err))
		return View{}, err
	}
	v.ActiveRegistry = reg
	return v, nil
}

// PackageReleases renders the release list of one package.
func (b *Browser) PackageReleases(ctx context.Context, chainID, registryAddr, pkg string) (template.HTML, error) {
	client, err := b.client(chainID)
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(registryAddr) {
		return "", fmt.Errorf("invalid registry address %q", registryAddr)
	}
	releases, err := client.Releases(ctx, common.HexToAddress(registryAddr), pkg)
	if err != nil {
		return "", fmt.Errorf("listing releases of %s: %w", pkg, err)
	}
	return ReleaseListHTML(releases)
}

// LoadDirectory reads the static registry directory listing. The JSON is
// returned as-is for the directory page to consume.
func LoadDirectory(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	if !json.Valid(data) {
		return nil, errors.New("directory listing is not valid JSON")
	}
	return data, nil
}
