package catalog

// Column describes one column of a Table.
//
// Columns are positional: Position is the zero-based ordinal within the
// owning table. internal/aiscodec serializes a table's columns in slice
// order, not by Position.
type Column struct {
	Name       string
	Type       string // SQL type name, e.g. "int", "varchar(32)"
	Position   int
	Nullable   bool
	DefaultSQL string // empty if the column has no default
}

// IndexColumn is one column participating in an Index, in key order.
type IndexColumn struct {
	Column     string
	Descending bool
}

// Index describes a physical index over a Table, including the table's
// primary key (IsPrimary true).
//
// TreeName is the identifier of the backing physical storage structure,
// allocated by internal/nameseq and never reused for the lifetime of the
// index (see internal/nameseq's collision-avoidance discussion).
type Index struct {
	Name      string
	TreeName  string
	Columns   []IndexColumn
	IsUnique  bool
	IsPrimary bool
}

// ConstraintKind enumerates the constraint types this catalog tracks.
// LiveAISValidations requires every constraint to have a name and checks
// references only for ForeignKey constraints; PrimaryKey is modeled instead as
// Table.PrimaryKey to keep the common case (every table has exactly zero or
// one primary key) out of a slice.
type ConstraintKind int

const (
	ConstraintForeignKey ConstraintKind = iota
	ConstraintCheck
	ConstraintUnique
)

// Constraint describes a named constraint on a Table beyond its primary key.
type Constraint struct {
	Name        string
	Kind        ConstraintKind
	Columns     []string
	RefSchema   string // ForeignKey only
	RefTable    string // ForeignKey only
	RefColumns  []string
	CheckSQL    string // Check only
}

// Table describes one table (or memory-resident pseudo-table — see
// MemoryResident) in a Schema.
//
// ID is allocated once by internal/nameseq.NameGenerator.NextTableID and
// never changes for the life of the table, including across DDL that adds
// or drops columns; callers that need to detect "this table's shape
// changed" use internal/nameseq.TableVersionMap keyed by ID, not by
// comparing the Table struct itself.
type Table struct {
	Schema         string
	Name           string
	ID             int32
	Columns        []Column
	PrimaryKey     *Index
	Indexes        []Index // secondary indexes only; PrimaryKey is separate
	Constraints    []Constraint
	MemoryResident bool // true for system pseudo-tables kept in-process only
}

// ColumnByName returns the column with the given name, or false if none
// exists. Lookups are linear: tables in this catalog have at most a few
// hundred columns, well below where a map would pay for itself.
func (t *Table) ColumnByName(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Sequence describes a standalone SQL sequence generator.
type Sequence struct {
	Schema    string
	Name      string
	StartWith int64
	Increment int64
}

// Routine describes a stored procedure or function.
//
// CallingConvention distinguishes SQL-bodied routines from routines backed
// by a Jar (external code). MemoryTablesOnly's "plus sys/sqlj/security
// routines" carve-out in internal/aiscodec selects by schema name only and
// applies to both kinds.
type Routine struct {
	Schema            string
	Name              string
	CallingConvention string
	JarName           string // empty unless backed by a Jar
}

// Jar describes an external code archive registered for use by Routines.
type Jar struct {
	Schema string
	Name   string
	URL    string
}

// Schema is a named namespace containing tables, sequences, routines, and
// jars. Schema names are the unit of persistence: internal/aiscodec writes
// one KV blob per schema (see Snapshot's key layout note in
// internal/schemamgr).
type Schema struct {
	Name      string
	Tables    map[string]*Table
	Sequences map[string]*Sequence
	Routines  map[string]*Routine
	Jars      map[string]*Jar
}
