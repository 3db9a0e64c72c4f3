// Package cache stores upstream payloads keyed by normalized identifiers.
//
// Two Cache implementations share one contract: LRUCache is a bounded
// in-process store with least-recently-used eviction, and RedisCache is an
// unbounded durable store with per-entry expiry. ReadThrough wires either to
// a loader; DefaultKeyer derives keys for structured queries.
package cache
