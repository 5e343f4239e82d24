package importer

import "strings"

// JoinIndex is an on-demand hash lookup over one record set, keyed by the
// values of one or two fields. It replaces per-record linear rescans of the
// price/stock/image tables: building is O(N), each lookup O(1) amortized.
type JoinIndex struct {
	keyFields []string
	buckets   map[string][]Record
}

// NewJoinIndex builds an index over rows keyed by the given field values.
// Rows whose key fields are all empty are not indexed. Matching rows are kept
// in source order so "first match" queries stay deterministic.
func NewJoinIndex(rows []Record, keyFields ...string) *JoinIndex {
	idx := &JoinIndex{
		keyFields: keyFields,
		buckets:   make(map[string][]Record),
	}
	for _, row := range rows {
		values := make([]string, len(keyFields))
		empty := true
		for i, f := range keyFields {
			values[i] = row[f]
			if row[f] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		key := bucketKey(values)
		idx.buckets[key] = append(idx.buckets[key], row)
	}
	return idx
}

// First returns the first row whose key fields equal the given values.
func (idx *JoinIndex) First(values ...string) (Record, bool) {
	rows := idx.buckets[bucketKey(values)]
	if len(rows) == 0 {
		return nil, false
	}
	return rows[0], true
}

// FirstWhere returns the first row matching the key values that also
// satisfies the filter.
func (idx *JoinIndex) FirstWhere(values []string, filter func(Record) bool) (Record, bool) {
	for _, row := range idx.buckets[bucketKey(values)] {
		if filter(row) {
			return row, true
		}
	}
	return nil, false
}

func bucketKey(values []string) string {
	return strings.Join(values, "\x1f")
}
