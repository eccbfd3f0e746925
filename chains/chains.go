// Package chains holds the table of supported networks used to label manifest
// deployments and to build block explorer links.
//
// A Table is immutable once built and safe for concurrent readers:
//
//	table := chains.DefaultTable(os.Getenv("WEB3_INFURA_PROJECT_ID"))
//	entry, err := table.ByGenesis("0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(entry.Name) // mainnet
package chains

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethpm/explorer/internal/core"
)

// Genesis block hashes of the well-known networks.
const (
	MainnetGenesis = "0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3"
	RopstenGenesis = "0x41941023680923e0fe4d74a34bdac8141f2540e3ae90623718e47d66d1ca4a2d"
	RinkebyGenesis = "0x6341fd3daf94b748c72ced5a5b26028f2474f5f00d824504e4fa37a75767e177"
	KovanGenesis   = "0xa3c565fc15c7478862d50ccd6561e3c06b24cc509bf388941c25ea985ce32cb9"
)

// DefaultChainID is the chain shown when none has been selected.
const DefaultChainID = "3"

// Entry describes one supported network.
type Entry struct {
	ChainID      string
	Name         string
	EndpointURL  string
	ExplorerHost string
	Genesis      string // 0x-prefixed genesis block hash
}

// URLs returns the block explorer URL builder for this chain.
func (e Entry) URLs() URLBuilder {
	return &ExplorerURLs{Host: e.ExplorerHost}
}

// Table is a read-only lookup of chain entries by id, name and genesis hash.
type Table struct {
	byID      map[string]Entry
	byName    map[string]string
	byGenesis map[string]string
}

// NewTable builds a Table. Chain ids, names and genesis hashes must be unique.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{
		byID:      make(map[string]Entry, len(entries)),
		byName:    make(map[string]string, len(entries)),
		byGenesis: make(map[string]string, len(entries)),
	}

	for _, e := range entries {
		if e.ChainID == "" {
			return nil, fmt.Errorf("chain entry %q: empty chain id", e.Name)
		}
		if _, dup := t.byID[e.ChainID]; dup {
			return nil, fmt.Errorf("duplicate chain id %s", e.ChainID)
		}
		if _, dup := t.byName[e.Name]; dup && e.Name != "" {
			return nil, fmt.Errorf("duplicate chain name %s", e.Name)
		}

		genesis := normalizeHash(e.Genesis)
		if len(genesis) != 64 {
			return nil, fmt.Errorf("chain %s: genesis hash must be 32 bytes of hex, got %q", e.ChainID, e.Genesis)
		}
		if _, dup := t.byGenesis[genesis]; dup {
			return nil, fmt.Errorf("duplicate genesis hash for chain %s", e.ChainID)
		}

		t.byID[e.ChainID] = e
		if e.Name != "" {
			t.byName[e.Name] = e.ChainID
		}
		t.byGenesis[genesis] = e.ChainID
	}

	return t, nil
}

// DefaultTable returns the four networks the explorer ships with.
// If infuraProjectID is empty the endpoint URLs carry no project path.
func DefaultTable(infuraProjectID string) *Table {
	t, err := NewTable(DefaultEntries(infuraProjectID)...)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultEntries returns the rows of DefaultTable.
func DefaultEntries(infuraProjectID string) []Entry {
	return []Entry{
		{"1", "mainnet", InfuraURL("mainnet.infura.io", infuraProjectID), "etherscan.io", MainnetGenesis},
		{"3", "ropsten", InfuraURL("ropsten.infura.io", infuraProjectID), "ropsten.etherscan.io", RopstenGenesis},
		{"4", "rinkeby", InfuraURL("rinkeby.infura.io", infuraProjectID), "rinkeby.etherscan.io", RinkebyGenesis},
		{"42", "kovan", InfuraURL("kovan.infura.io", infuraProjectID), "kovan.etherscan.io", KovanGenesis},
	}
}

// InfuraURL builds an Infura HTTPS endpoint for domain.
func InfuraURL(domain, projectID string) string {
	if projectID == "" {
		return "https://" + domain
	}
	return "https://" + domain + "/v3/" + projectID
}

// ByChainID returns the entry for a chain id such as "1".
func (t *Table) ByChainID(id string) (Entry, error) {
	e, ok := t.byID[id]
	if !ok {
		return Entry{}, &core.ChainError{Key: id}
	}
	return e, nil
}

// ByName returns the entry for a chain name such as "mainnet".
func (t *Table) ByName(name string) (Entry, error) {
	id, ok := t.byName[name]
	if !ok {
		return Entry{}, &core.ChainError{Key: name}
	}
	return t.byID[id], nil
}

// ByGenesis returns the entry whose genesis hash matches. The comparison is
// case-insensitive and the 0x prefix is optional.
func (t *Table) ByGenesis(hash string) (Entry, error) {
	id, ok := t.byGenesis[normalizeHash(hash)]
	if !ok {
		return Entry{}, &core.ChainError{Key: hash}
	}
	return t.byID[id], nil
}

// IDs returns the chain ids in numeric order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})
	return ids
}

// Entries returns every entry in chain id order.
func (t *Table) Entries() []Entry {
	ids := t.IDs()
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = t.byID[id]
	}
	return entries
}

// ExplorerLink returns the block explorer URL of an address on a chain.
func (t *Table) ExplorerLink(chainID, address string) (string, error) {
	e, err := t.ByChainID(chainID)
	if err != nil {
		return "", err
	}
	return e.URLs().Address(address), nil
}

func normalizeHash(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.TrimPrefix(h, "0x")
}
