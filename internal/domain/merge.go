package domain

// MergeResult is the outcome of reconciling a remote snapshot into a local collection.
type MergeResult struct {
	// Quotes is the merged collection; it holds at most one quote per key.
	Quotes []Quote

	// Added counts remote quotes whose key was not present locally.
	Added int

	// Updated counts local quotes replaced by a differing remote quote with the same key.
	Updated int
}

// Unchanged reports whether the merge neither added nor replaced anything.
func (r MergeResult) Unchanged() bool {
	return r.Added == 0 && r.Updated == 0
}

// Merge reconciles remote into local using a "server wins" rule.
//
// Local duplicates collapse first: a later local quote overwrites an earlier one
// sharing its key but keeps the earlier position. Each remote quote is then
// appended when its key is new, or replaces the existing entry when any field
// differs. The result preserves first-insertion order.
//
// Keys are always derived from current field values. An edited local quote is
// therefore a different entity from the remote original it came from, and the
// server copy will be re-added rather than reconciled with the edit.
func Merge(local, remote []Quote) MergeResult {
	index := make(map[string]int, len(local)+len(remote))
	merged := make([]Quote, 0, len(local)+len(remote))

	for _, q := range local {
		k := q.Key()
		if pos, ok := index[k]; ok {
			merged[pos] = q
			continue
		}

		index[k] = len(merged)
		merged = append(merged, q)
	}

	var result MergeResult

	for _, r := range remote {
		k := r.Key()

		pos, ok := index[k]
		if !ok {
			index[k] = len(merged)
			merged = append(merged, r)
			result.Added++

			continue
		}

		if merged[pos] != r {
			merged[pos] = r
			result.Updated++
		}
	}

	result.Quotes = merged

	return result
}
