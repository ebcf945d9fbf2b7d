package schemamgr

import "github.com/dreamware/aisdb/internal/kv"

// Persistent key layout (bit-exact, SPEC_FULL.md §6): prefix is the
// ordered tuple ("sm/", "ais/"); the generation key appends "generation";
// per-schema blob keys append ("pb/", schemaName).

func generationKey() []byte {
	return kv.Pack("sm/", "ais/", "generation")
}

func schemaBlobKey(schema string) []byte {
	return kv.Pack("sm/", "ais/", "pb/", schema)
}

func schemaBlobPrefix() []byte {
	return kv.Pack("sm/", "ais/", "pb/")
}
