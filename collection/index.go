package collection

import (
	"fmt"

	"github.com/google/btree"

	"github.com/fulldump/docfile/value"
)

type idEntry struct {
	id  string
	row *Row
}

// IndexID is a unique index over the `_id` field. Rows without a string
// `_id` are not indexed.
type IndexID struct {
	Btree *btree.BTreeG[idEntry]
}

func NewIndexID() *IndexID {
	return &IndexID{
		Btree: btree.NewG(32, func(a, b idEntry) bool {
			return a.id < b.id
		}),
	}
}

func (x *IndexID) AddRow(row *Row) error {
	id, ok := rowID(row)
	if !ok {
		return nil
	}
	if x.Btree.Has(idEntry{id: id}) {
		return fmt.Errorf("index conflict: field '%s' with value '%s'", FieldID, id)
	}
	x.Btree.ReplaceOrInsert(idEntry{id: id, row: row})
	return nil
}

// RemoveRow drops the entry only when it points to this very row.
func (x *IndexID) RemoveRow(row *Row) {
	id, ok := rowID(row)
	if !ok {
		return
	}
	entry, found := x.Btree.Get(idEntry{id: id})
	if !found || entry.row != row {
		return
	}
	x.Btree.Delete(entry)
}

func (x *IndexID) Get(id string) (*Row, bool) {
	entry, found := x.Btree.Get(idEntry{id: id})
	return entry.row, found
}

func (x *IndexID) Has(id string) bool {
	return x.Btree.Has(idEntry{id: id})
}

func (x *IndexID) Len() int {
	return x.Btree.Len()
}

func (x *IndexID) Clear() {
	x.Btree.Clear(false)
}

func rowID(row *Row) (string, bool) {
	v, ok := row.Payload.Get(FieldID)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// lookupID returns the id when the query selects by `_id` only.
func lookupID(query *value.Map) (string, bool) {
	if query.Len() != 1 {
		return "", false
	}
	v, ok := query.Get(FieldID)
	if !ok {
		return "", false
	}
	return v.AsString()
}
