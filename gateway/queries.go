package gateway

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jonwraymond/brgateway/provider"
)

// Query is one enrichment search.
type Query struct {
	Category string
	Text     string
	Domains  []string
}

// BuildQueries derives the enrichment searches for a company, ordered by
// category priority. categories filters the result; empty keeps all.
func BuildQueries(c provider.Company, categories []string) []Query {
	name := quote(c.DisplayName())
	legal := quote(c.LegalName)
	if legal == "" {
		legal = name
	}
	cnpj := provider.FormatCNPJ(c.CNPJ)

	queries := []Query{
		{Category: CategoryGovernment, Text: legal + " " + cnpj, Domains: []string{"gov.br"}},
		{Category: CategoryGovernment, Text: legal + " sanção OR licitação", Domains: []string{"portaltransparencia.gov.br"}},
		{Category: CategoryLegal, Text: legal + " processo judicial", Domains: []string{"jusbrasil.com.br"}},
		{Category: CategoryNews, Text: name + " notícias"},
		{Category: CategoryReputation, Text: name + " reclamações", Domains: []string{"reclameaqui.com.br"}},
	}

	partners := c.Partners
	if len(partners) > maxPartnerQueries {
		partners = partners[:maxPartnerQueries]
	}
	for _, p := range partners {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		queries = append(queries, Query{
			Category: CategoryPartners,
			Text:     fmt.Sprintf("%s %s", quote(p.Name), name),
		})
	}

	if len(categories) == 0 {
		return queries
	}
	out := queries[:0]
	for _, q := range queries {
		if slices.Contains(categories, q.Category) {
			out = append(out, q)
		}
	}
	return out
}

func quote(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return `"` + s + `"`
}
