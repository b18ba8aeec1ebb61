// Package optsearch provides a cache-backed search index for package
// option documentation. It fetches HTML manuals, parses them into
// structured option records, indexes the records for exact, prefix,
// hierarchical, word and fuzzy lookup, and persists the derived index
// structures through a multi-process-safe disk cache.
//
// This package contains domain types and interfaces following Ben
// Johnson's Standard Package Layout. Implementations live in
// subdirectories named after their primary dependency or concern
// (e.g. fs/, http/, goquery/, memcache/).
package optsearch
