package namesupply

// Table maps logical keys, such as "callee_packed", to identifiers issued by
// a Supply. Entries are never rewritten or removed. The zero value is not
// usable; call NewTable.
type Table struct {
	supply  *Supply
	entries map[string]string
	order   []string
}

// NewTable returns an empty table drawing names from supply.
func NewTable(supply *Supply) *Table {
	return &Table{
		supply:  supply,
		entries: make(map[string]string),
	}
}

// InternGlobal returns the identifier recorded for key. The first call for a
// key allocates a fresh identifier and reports isNew.
func (t *Table) InternGlobal(key string) (id string, isNew bool) {
	if id, ok := t.entries[key]; ok {
		return id, false
	}
	id = t.supply.FreshName(key)
	t.entries[key] = id
	t.order = append(t.order, key)
	return id, true
}

// Lookup returns the identifier for key without allocating.
func (t *Table) Lookup(key string) (string, bool) {
	id, ok := t.entries[key]
	return id, ok
}

// Len returns the number of interned keys.
func (t *Table) Len() int { return len(t.entries) }

// Keys returns the interned keys in first-interned order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
