package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CNPJProvider looks companies up in the federal registry mirror.
type CNPJProvider struct {
	fetcher Fetcher
}

// NewCNPJProvider creates a provider over f, whose base URL ends at the
// collection (".../cnpj/v1").
func NewCNPJProvider(f Fetcher) *CNPJProvider {
	return &CNPJProvider{fetcher: f}
}

// Lookup fetches the registry record for a normalized CNPJ.
func (p *CNPJProvider) Lookup(ctx context.Context, cnpj string) (json.RawMessage, error) {
	return fetchJSON(ctx, p.fetcher, cnpj)
}

// CEPProvider resolves postal codes to addresses.
type CEPProvider struct {
	fetcher Fetcher
}

// NewCEPProvider creates a provider over f.
func NewCEPProvider(f Fetcher) *CEPProvider {
	return &CEPProvider{fetcher: f}
}

// Lookup fetches the address for a normalized CEP.
func (p *CEPProvider) Lookup(ctx context.Context, cep string) (json.RawMessage, error) {
	return fetchJSON(ctx, p.fetcher, cep)
}

func fetchJSON(ctx context.Context, f Fetcher, path string) (json.RawMessage, error) {
	data, err := f.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrBadPayload, truncate(string(data), 64))
	}
	return json.RawMessage(data), nil
}

// Partner is one entry of a company's ownership table.
type Partner struct {
	Name          string `json:"nome_socio"`
	Qualification string `json:"qualificacao_socio"`
}

// Company is the subset of a registry record the enrichment flow uses.
type Company struct {
	CNPJ      string    `json:"cnpj"`
	LegalName string    `json:"razao_social"`
	TradeName string    `json:"nome_fantasia"`
	City      string    `json:"municipio"`
	State     string    `json:"uf"`
	Status    string    `json:"descricao_situacao_cadastral"`
	Activity  string    `json:"cnae_fiscal_descricao"`
	Partners  []Partner `json:"qsa"`
}

// DisplayName prefers the trade name over the legal name.
func (c Company) DisplayName() string {
	if n := strings.TrimSpace(c.TradeName); n != "" {
		return n
	}
	return strings.TrimSpace(c.LegalName)
}

// ParseCompany decodes the fields of a registry record used for enrichment.
func ParseCompany(data json.RawMessage) (Company, error) {
	var c Company
	if err := json.Unmarshal(data, &c); err != nil {
		return Company{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if c.DisplayName() == "" {
		return Company{}, fmt.Errorf("%w: record has no company name", ErrBadPayload)
	}
	return c, nil
}
