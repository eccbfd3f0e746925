package render

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ethpm/explorer/chains"
	"github.com/ethpm/explorer/internal/manifest"
)

// DeploymentsRenderer labels each deployment chain from the chain table and
// links addresses, transactions and blocks to the chain's block explorer.
// Chains the table does not know are shown under their raw URI with the
// deployment JSON unmodified.
type DeploymentsRenderer struct {
	table *chains.Table
}

func NewDeploymentsRenderer(table *chains.Table) *DeploymentsRenderer {
	return &DeploymentsRenderer{table: table}
}

func (r *DeploymentsRenderer) Name() string { return SectionDeployments }

func (r *DeploymentsRenderer) Render(m *manifest.Manifest) (Section, bool) {
	if m.Deployments == nil {
		return Section{}, false
	}

	s := Section{Name: SectionDeployments, Title: "Deployments"}
	for _, chainURI := range manifest.SortedKeys(m.Deployments) {
		instances := m.Deployments[chainURI]
		entry, ok := r.identify(chainURI)
		if !ok {
			s.Entries = append(s.Entries, rawDeployments(chainURI, instances))
			continue
		}
		s.Entries = append(s.Entries, linkedDeployments(chainURI, entry, instances))
	}
	return s, true
}

func (r *DeploymentsRenderer) identify(chainURI string) (chains.Entry, bool) {
	if r.table == nil {
		return chains.Entry{}, false
	}
	u, err := chains.ParseChainURI(chainURI)
	if err != nil {
		return chains.Entry{}, false
	}
	e, err := r.table.ByGenesis(u.Genesis)
	if err != nil {
		return chains.Entry{}, false
	}
	return e, true
}

func linkedDeployments(chainURI string, chain chains.Entry, instances map[string]manifest.Deployment) Entry {
	urls := chain.URLs()
	group := Entry{Label: chain.Name, Text: chainURI}
	for _, name := range manifest.SortedKeys(instances) {
		d := instances[name]
		hrefs := chains.BuildURLs(urls, linkableAddress(d.Address), linkableHash(d.Transaction), linkableHash(d.Block))

		inst := Entry{Label: name}
		if d.ContractType != "" {
			inst.Children = append(inst.Children, Entry{Label: "Contract Type", Text: d.ContractType})
		}
		if d.Address != "" {
			inst.Children = append(inst.Children, Entry{Label: "Address", Text: d.Address, Href: hrefs["address"]})
		}
		if d.Transaction != "" {
			inst.Children = append(inst.Children, Entry{Label: "Transaction", Text: d.Transaction, Href: hrefs["transaction"]})
		}
		if d.Block != "" {
			inst.Children = append(inst.Children, Entry{Label: "Block", Text: d.Block, Href: hrefs["block"]})
		}
		group.Children = append(group.Children, inst)
	}
	return group
}

func rawDeployments(chainURI string, instances map[string]manifest.Deployment) Entry {
	group := Entry{Label: chainURI}
	for _, name := range manifest.SortedKeys(instances) {
		group.Children = append(group.Children, Entry{Label: name, Code: PrettyJSON(instances[name].Raw)})
	}
	return group
}

// linkableAddress returns s if it is a well-formed address, else "".
// Validate already rejects malformed values; this covers Manifests built
// without it, which must still never link arbitrary text.
func linkableAddress(s string) string {
	if !common.IsHexAddress(s) {
		return ""
	}
	return s
}

func linkableHash(s string) string {
	if !isHash(s) {
		return ""
	}
	return s
}

func isHash(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}
