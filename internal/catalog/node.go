package catalog

// Node is implemented by every catalog element a Selector can decide to
// include or exclude: *Table, *Routine, *Sequence, *Jar. It is a closed set
// (the unexported marker method prevents external implementations) so that
// callers of Snapshot.Node (internal/nameseq, internal/rowdef,
// internal/schemamgr) can type-switch over it exhaustively instead of
// walking a dynamic-dispatch visitor hierarchy — see spec §9's design
// note on replacing instance-of visitors with a single polymorphic
// dispatch routine.
type Node interface {
	isCatalogNode()
}

func (*Table) isCatalogNode()    {}
func (*Routine) isCatalogNode()  {}
func (*Sequence) isCatalogNode() {}
func (*Jar) isCatalogNode()      {}
