// Package provider talks to the upstream data sources: the CNPJ and CEP
// registries and the web search API.
//
// Providers are deliberately thin. They build a request from a normalized
// identifier, fetch it and hand back the upstream JSON. Caching, coalescing
// and failure protection live in the gateway package.
package provider
