package aiscodec

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/exp/slices"

	"github.com/dreamware/aisdb/internal/catalog"
)

// record tags identify which catalog element follows in the blob stream.
// Each blob begins with a schemaHeader record and ends implicitly at EOF;
// there is no trailing terminator record, since Load reads until io.EOF.
type recordTag byte

const (
	recSchemaHeader recordTag = iota + 1
	recTable
	recRoutine
	recSequence
	recJar
)

// Save encodes snap, restricted by sel, into w as a sequence of
// self-contained per-schema blobs. Each schema that sel.PickSchema accepts
// produces exactly one schemaHeader record followed by zero or more
// element records; schemas sel rejects are skipped entirely, including
// their header.
func Save(w io.Writer, snap *catalog.Snapshot, sel Selector) error {
	enc := msgpack.NewEncoder(w)
	for _, name := range snap.SchemaNames() {
		if !sel.PickSchema(name) {
			continue
		}
		sc, ok := snap.Schema(name)
		if !ok {
			continue
		}
		if err := encodeSchema(enc, sc, sel); err != nil {
			return fmt.Errorf("aiscodec: encode schema %q: %w", name, err)
		}
	}
	return nil
}

func encodeSchema(enc *msgpack.Encoder, sc *catalog.Schema, sel Selector) error {
	if err := enc.EncodeUint8(uint8(recSchemaHeader)); err != nil {
		return err
	}
	if err := enc.EncodeString(sc.Name); err != nil {
		return err
	}

	tableNames := make([]string, 0, len(sc.Tables))
	for n := range sc.Tables {
		tableNames = append(tableNames, n)
	}
	slices.Sort(tableNames)
	for _, n := range tableNames {
		t := sc.Tables[n]
		switch sel.PickTable(t) {
		case TableExcluded:
			continue
		case TableRewritten:
			rewritten := *t
			rewritten.Constraints = nil
			if err := encodeRecord(enc, recTable, &rewritten); err != nil {
				return err
			}
		default:
			if err := encodeRecord(enc, recTable, t); err != nil {
				return err
			}
		}
	}

	routineNames := make([]string, 0, len(sc.Routines))
	for n := range sc.Routines {
		routineNames = append(routineNames, n)
	}
	slices.Sort(routineNames)
	for _, n := range routineNames {
		r := sc.Routines[n]
		if sel.PickRoutine(r) {
			if err := encodeRecord(enc, recRoutine, r); err != nil {
				return err
			}
		}
	}

	seqNames := make([]string, 0, len(sc.Sequences))
	for n := range sc.Sequences {
		seqNames = append(seqNames, n)
	}
	slices.Sort(seqNames)
	for _, n := range seqNames {
		s := sc.Sequences[n]
		if sel.PickSequence(s) {
			if err := encodeRecord(enc, recSequence, s); err != nil {
				return err
			}
		}
	}

	jarNames := make([]string, 0, len(sc.Jars))
	for n := range sc.Jars {
		jarNames = append(jarNames, n)
	}
	slices.Sort(jarNames)
	for _, n := range jarNames {
		j := sc.Jars[n]
		if sel.PickJar(j) {
			if err := encodeRecord(enc, recJar, j); err != nil {
				return err
			}
		}
	}

	return nil
}

func encodeRecord(enc *msgpack.Encoder, tag recordTag, payload any) error {
	if err := enc.EncodeUint8(uint8(tag)); err != nil {
		return err
	}
	return enc.Encode(payload)
}

// Accumulator collects decoded records across one or more Load calls (one
// per schema blob) and merges them into a single catalog graph on
// Finalize.
type Accumulator struct {
	builder *catalog.Builder
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{builder: catalog.NewBuilder()}
}

// Load decodes one blob (as produced by a single Save call against one
// schema) and merges its records into acc. It is safe to call Load
// repeatedly against the same Accumulator for different blobs, including
// concurrently from different goroutines only if each call uses its own
// io.Reader and the Accumulator methods are otherwise externally
// synchronized by the caller. internal/schemamgr's bootstrap loader avoids
// sharing altogether: it decodes each blob into its own Accumulator in
// parallel and merges the results afterwards (see Schemas).
func Load(r io.Reader, acc *Accumulator) error {
	dec := msgpack.NewDecoder(r)

	var currentSchema *catalog.Schema
	for {
		tagByte, err := dec.DecodeUint8()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("aiscodec: read record tag: %w", err)
		}

		switch recordTag(tagByte) {
		case recSchemaHeader:
			name, err := dec.DecodeString()
			if err != nil {
				return fmt.Errorf("aiscodec: decode schema header: %w", err)
			}
			currentSchema = acc.builder.Schema(name)
		case recTable:
			if currentSchema == nil {
				return fmt.Errorf("aiscodec: table record before schema header")
			}
			var t catalog.Table
			if err := dec.Decode(&t); err != nil {
				return fmt.Errorf("aiscodec: decode table: %w", err)
			}
			currentSchema.Tables[t.Name] = &t
		case recRoutine:
			if currentSchema == nil {
				return fmt.Errorf("aiscodec: routine record before schema header")
			}
			var rt catalog.Routine
			if err := dec.Decode(&rt); err != nil {
				return fmt.Errorf("aiscodec: decode routine: %w", err)
			}
			currentSchema.Routines[rt.Name] = &rt
		case recSequence:
			if currentSchema == nil {
				return fmt.Errorf("aiscodec: sequence record before schema header")
			}
			var sq catalog.Sequence
			if err := dec.Decode(&sq); err != nil {
				return fmt.Errorf("aiscodec: decode sequence: %w", err)
			}
			currentSchema.Sequences[sq.Name] = &sq
		case recJar:
			if currentSchema == nil {
				return fmt.Errorf("aiscodec: jar record before schema header")
			}
			var j catalog.Jar
			if err := dec.Decode(&j); err != nil {
				return fmt.Errorf("aiscodec: decode jar: %w", err)
			}
			currentSchema.Jars[j.Name] = &j
		default:
			return fmt.Errorf("aiscodec: unknown record tag %d", tagByte)
		}
	}
}

// Schemas returns every schema accumulated so far, in name order. Used by
// callers (internal/schemamgr's bootstrap loader) that decode several
// blobs into independent Accumulators in parallel and then need to merge
// the results into one catalog.Builder before a single, whole-graph
// validation pass.
func (acc *Accumulator) Schemas() []*catalog.Schema {
	names := acc.builder.SchemaNames()
	out := make([]*catalog.Schema, 0, len(names))
	for _, name := range names {
		out = append(out, acc.builder.Schema(name))
	}
	return out
}

// Finalize validates and freezes the catalog graph accumulated so far,
// stamping it with generation. It leaves the Accumulator usable for
// inspection but not for further Load calls once frozen, since the frozen
// snapshot shares the builder's schema maps and a later Load would mutate
// it.
func (acc *Accumulator) Finalize(generation int64) (*catalog.Snapshot, error) {
	return acc.builder.Freeze(generation)
}
