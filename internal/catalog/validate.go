package catalog

import (
	"errors"
	"fmt"
)

// ErrValidationFailure is returned (wrapped) by Builder.Freeze when
// LiveAISValidations rejects a candidate catalog graph. Per spec §7, a
// DDL that fails validation aborts before any KV write — Freeze is always
// called before internal/schemamgr touches the KV store.
var ErrValidationFailure = errors.New("catalog: validation failure")

// LiveAISValidations is the ruleset a candidate catalog graph must satisfy
// before it can be frozen into a Snapshot. It checks structural invariants
// only; SQL-level DDL semantics are explicitly out of scope (spec §1
// Non-goals).
//
// Rules enforced:
//  1. Every table's columns have unique, non-empty names.
//  2. A table's primary key and every secondary index reference only
//     columns that exist on that table.
//  3. Every table ID is unique across the whole graph.
//  4. Every foreign key constraint references a table that exists in the
//     candidate graph, in the schema named by the constraint.
//  5. Schema, table, sequence, routine, and jar names are non-empty.
func LiveAISValidations(b *Builder) error {
	seenTableIDs := make(map[int32]string) // id -> "schema.table", for a useful error message

	for _, schemaName := range b.SchemaNames() {
		if schemaName == "" {
			return errors.New("schema with empty name")
		}
		sc := b.schemas[schemaName]

		for tableName, t := range sc.Tables {
			if tableName == "" {
				return fmt.Errorf("schema %q: table with empty name", schemaName)
			}
			if t.Schema != schemaName || t.Name != tableName {
				return fmt.Errorf("table %q stored under %q.%q has mismatched Schema/Name fields", t.Name, schemaName, tableName)
			}
			if prior, ok := seenTableIDs[t.ID]; ok {
				return fmt.Errorf("table ID %d reused by %q and %q.%q", t.ID, prior, schemaName, tableName)
			}
			seenTableIDs[t.ID] = schemaName + "." + tableName

			cols := make(map[string]bool, len(t.Columns))
			for _, c := range t.Columns {
				if c.Name == "" {
					return fmt.Errorf("table %q.%q: column with empty name", schemaName, tableName)
				}
				if cols[c.Name] {
					return fmt.Errorf("table %q.%q: duplicate column %q", schemaName, tableName, c.Name)
				}
				cols[c.Name] = true
			}

			if t.PrimaryKey != nil {
				if err := validateIndexColumns(schemaName, tableName, "primary key", t.PrimaryKey, cols); err != nil {
					return err
				}
			}
			for i := range t.Indexes {
				if err := validateIndexColumns(schemaName, tableName, t.Indexes[i].Name, &t.Indexes[i], cols); err != nil {
					return err
				}
			}

			for _, c := range t.Constraints {
				if c.Name == "" {
					return fmt.Errorf("table %q.%q: constraint with empty name", schemaName, tableName)
				}
				if c.Kind == ConstraintForeignKey {
					refSchema, ok := b.schemas[c.RefSchema]
					if !ok {
						return fmt.Errorf("constraint %q on %q.%q references unknown schema %q", c.Name, schemaName, tableName, c.RefSchema)
					}
					if _, ok := refSchema.Tables[c.RefTable]; !ok {
						return fmt.Errorf("constraint %q on %q.%q references unknown table %q.%q", c.Name, schemaName, tableName, c.RefSchema, c.RefTable)
					}
				}
			}
		}

		for seqName := range sc.Sequences {
			if seqName == "" {
				return fmt.Errorf("schema %q: sequence with empty name", schemaName)
			}
		}
		for routineName := range sc.Routines {
			if routineName == "" {
				return fmt.Errorf("schema %q: routine with empty name", schemaName)
			}
		}
		for jarName := range sc.Jars {
			if jarName == "" {
				return fmt.Errorf("schema %q: jar with empty name", schemaName)
			}
		}
	}
	return nil
}

func validateIndexColumns(schemaName, tableName, indexName string, idx *Index, cols map[string]bool) error {
	if len(idx.Columns) == 0 {
		return fmt.Errorf("index %q on %q.%q has no columns", indexName, schemaName, tableName)
	}
	for _, ic := range idx.Columns {
		if !cols[ic.Column] {
			return fmt.Errorf("index %q on %q.%q references unknown column %q", indexName, schemaName, tableName, ic.Column)
		}
	}
	return nil
}
