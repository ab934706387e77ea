package storage

import "strings"

// Match applies f to r. File backends filter in memory with it; SQL
// backends express the same rules in their queries.
func (f Filter) Match(r *Record) bool {
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.School != "" && !strings.Contains(r.School, f.School) {
		return false
	}
	if f.Class != "" && !strings.EqualFold(r.Class, f.Class) {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page orders records newest first and applies Offset and Limit. records
// must be in insertion order.
func (f Filter) Page(records []*Record) []*Record {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*Record{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}
