package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreezeAcceptsWellFormedGraph(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &Table{
		Schema: "sales",
		Name:   "orders",
		ID:     1,
		Columns: []Column{
			{Name: "id", Type: "int", Position: 0},
			{Name: "customer_id", Type: "int", Position: 1},
		},
		PrimaryKey: &Index{
			Name: "pk_orders", IsPrimary: true, IsUnique: true,
			Columns: []IndexColumn{{Column: "id"}},
		},
		Indexes: []Index{
			{Name: "ix_customer", Columns: []IndexColumn{{Column: "customer_id"}}},
		},
	}

	snap, err := b.Freeze(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Generation())
}

func TestFreezeRejectsDuplicateTableID(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &Table{Schema: "sales", Name: "orders", ID: 1}
	sc.Tables["invoices"] = &Table{Schema: "sales", Name: "invoices", ID: 1}

	_, err := b.Freeze(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailure)
}

func TestFreezeRejectsMismatchedNameFields(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &Table{Schema: "sales", Name: "wrong-name", ID: 1}

	_, err := b.Freeze(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailure)
}

func TestFreezeRejectsDuplicateColumn(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &Table{
		Schema: "sales",
		Name:   "orders",
		ID:     1,
		Columns: []Column{
			{Name: "id", Type: "int"},
			{Name: "id", Type: "int"},
		},
	}

	_, err := b.Freeze(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailure)
}

func TestFreezeRejectsIndexOnUnknownColumn(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &Table{
		Schema:  "sales",
		Name:    "orders",
		ID:      1,
		Columns: []Column{{Name: "id", Type: "int"}},
		PrimaryKey: &Index{
			Name: "pk_orders", IsPrimary: true,
			Columns: []IndexColumn{{Column: "does_not_exist"}},
		},
	}

	_, err := b.Freeze(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailure)
}

func TestFreezeRejectsIndexWithNoColumns(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &Table{
		Schema:     "sales",
		Name:       "orders",
		ID:         1,
		Columns:    []Column{{Name: "id", Type: "int"}},
		PrimaryKey: &Index{Name: "pk_orders", IsPrimary: true},
	}

	_, err := b.Freeze(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailure)
}

func TestFreezeRejectsForeignKeyToUnknownTable(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &Table{
		Schema: "sales",
		Name:   "orders",
		ID:     1,
		Constraints: []Constraint{
			{Name: "fk_customer", Kind: ConstraintForeignKey, RefSchema: "sales", RefTable: "customers"},
		},
	}

	_, err := b.Freeze(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailure)
}

func TestFreezeAcceptsForeignKeyToKnownTable(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["customers"] = &Table{Schema: "sales", Name: "customers", ID: 1}
	sc.Tables["orders"] = &Table{
		Schema: "sales",
		Name:   "orders",
		ID:     2,
		Constraints: []Constraint{
			{Name: "fk_customer", Kind: ConstraintForeignKey, RefSchema: "sales", RefTable: "customers"},
		},
	}

	_, err := b.Freeze(1)
	require.NoError(t, err)
}

func TestFreezeRejectsEmptyNames(t *testing.T) {
	cases := []struct {
		name  string
		setup func(b *Builder)
	}{
		{"empty table name", func(b *Builder) {
			b.Schema("sales").Tables[""] = &Table{Schema: "sales", Name: "", ID: 1}
		}},
		{"empty sequence name", func(b *Builder) {
			b.Schema("sales").Sequences[""] = &Sequence{Schema: "sales", Name: ""}
		}},
		{"empty routine name", func(b *Builder) {
			b.Schema("sales").Routines[""] = &Routine{Schema: "sales", Name: ""}
		}},
		{"empty jar name", func(b *Builder) {
			b.Schema("sales").Jars[""] = &Jar{Schema: "sales", Name: ""}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder()
			tc.setup(b)
			_, err := b.Freeze(1)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidationFailure)
		})
	}
}

func TestNewBuilderFromIsADeepCopy(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &Table{
		Schema:  "sales",
		Name:    "orders",
		ID:      1,
		Columns: []Column{{Name: "id", Type: "int"}},
	}
	snap, err := b.Freeze(1)
	require.NoError(t, err)

	b2 := NewBuilderFrom(snap)
	b2.Schema("sales").Tables["orders"].Columns[0].Name = "mutated"

	orig, ok := snap.UserTable("sales", "orders")
	require.True(t, ok)
	assert.Equal(t, "id", orig.Columns[0].Name)
}

func TestSnapshotNodeVisitsEveryKind(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["orders"] = &Table{Schema: "sales", Name: "orders", ID: 1}
	sc.Sequences["seq"] = &Sequence{Schema: "sales", Name: "seq"}
	sc.Routines["proc"] = &Routine{Schema: "sales", Name: "proc"}
	sc.Jars["jar"] = &Jar{Schema: "sales", Name: "jar"}
	snap, err := b.Freeze(1)
	require.NoError(t, err)

	var kinds []string
	snap.Node(func(n Node) bool {
		switch n.(type) {
		case *Table:
			kinds = append(kinds, "table")
		case *Sequence:
			kinds = append(kinds, "sequence")
		case *Routine:
			kinds = append(kinds, "routine")
		case *Jar:
			kinds = append(kinds, "jar")
		}
		return true
	})
	assert.ElementsMatch(t, []string{"table", "sequence", "routine", "jar"}, kinds)
}

func TestSnapshotNodeStopsEarly(t *testing.T) {
	b := NewBuilder()
	sc := b.Schema("sales")
	sc.Tables["a"] = &Table{Schema: "sales", Name: "a", ID: 1}
	sc.Tables["b"] = &Table{Schema: "sales", Name: "b", ID: 2}
	snap, err := b.Freeze(1)
	require.NoError(t, err)

	count := 0
	snap.Node(func(n Node) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestNilSnapshotIsSafe(t *testing.T) {
	var snap *Snapshot
	assert.Equal(t, int64(0), snap.Generation())
	assert.Empty(t, snap.SchemaNames())
	_, ok := snap.Schema("sales")
	assert.False(t, ok)
}
