// =============================================================================
// NF-e / DANFE Filter - Cross-Reference Index
// =============================================================================
//
// This module reconciles the two document sets. XML records and DANFE
// renderings are keyed independently; the invoice number is the only link
// between them.
//
// FILTER PREDICATES:
//   - A record survives when its order id is in the requested set (if an
//     order filter is active) and its invoice number is inside the range
//     (if a range is active).
//   - A rendering survives when its invoice number belongs to a retained
//     group (if an XML archive was supplied), is inside the range, and its
//     group is not voided.
//
// Documents whose invoice number is unknown never survive.
//
// =============================================================================

package index

import (
	"sort"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
)

// Index groups records by invoice number in ascending order.
type Index struct {
	groups []types.InvoiceGroup
	byNum  map[uint64]int
}

// Build groups the records by invoice number. Records with an unknown
// number are dropped.
func Build(records []types.StructuredRecord) *Index {
	idx := &Index{byNum: make(map[uint64]int)}

	for _, r := range records {
		if !r.InvoiceNumber.Valid {
			continue
		}
		n := r.InvoiceNumber.Value
		pos, ok := idx.byNum[n]
		if !ok {
			pos = len(idx.groups)
			idx.byNum[n] = pos
			idx.groups = append(idx.groups, types.InvoiceGroup{InvoiceNumber: n})
		}
		idx.groups[pos].Records = append(idx.groups[pos].Records, r)
	}

	sort.Slice(idx.groups, func(i, j int) bool {
		return idx.groups[i].InvoiceNumber < idx.groups[j].InvoiceNumber
	})
	for i, g := range idx.groups {
		idx.byNum[g.InvoiceNumber] = i
	}
	return idx
}

// Len returns the number of groups.
func (idx *Index) Len() int {
	return len(idx.groups)
}

// Groups returns the groups in ascending invoice-number order. The slice
// is shared with the index so callers can set Status in place.
func (idx *Index) Groups() []types.InvoiceGroup {
	return idx.groups
}

// Group returns the group for n.
func (idx *Index) Group(n uint64) (*types.InvoiceGroup, bool) {
	pos, ok := idx.byNum[n]
	if !ok {
		return nil, false
	}
	return &idx.groups[pos], true
}

// Numbers returns every invoice number in ascending order.
func (idx *Index) Numbers() []uint64 {
	out := make([]uint64, len(idx.groups))
	for i, g := range idx.groups {
		out[i] = g.InvoiceNumber
	}
	return out
}

// =============================================================================
// FILTERS
// =============================================================================

// FilterRecords keeps the records that satisfy the criteria, preserving
// input order.
func FilterRecords(records []types.StructuredRecord, criteria types.FilterCriteria) []types.StructuredRecord {
	out := make([]types.StructuredRecord, 0, len(records))
	for _, r := range records {
		if !r.InvoiceNumber.Valid {
			continue
		}
		if !criteria.MatchesOrder(r.OrderID) {
			continue
		}
		if !criteria.MatchesRange(r.InvoiceNumber.Value) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterRenderings keeps the renderings that satisfy the criteria and
// attaches them to their groups. Groups must already be classified.
//
// PARAMETERS:
//   - renderings: Every rendering read from the DANFE archive.
//   - criteria: The run's filter criteria.
//   - idx: The index of retained records.
//   - haveRecords: Whether an XML archive was supplied at all.
//
// RETURNS:
//   - The retained renderings, in input order.
func FilterRenderings(renderings []types.Rendering, criteria types.FilterCriteria, idx *Index, haveRecords bool) []types.Rendering {
	out := make([]types.Rendering, 0, len(renderings))
	for _, r := range renderings {
		if !r.InvoiceNumber.Valid {
			continue
		}
		n := r.InvoiceNumber.Value
		if !criteria.MatchesRange(n) {
			continue
		}

		if haveRecords {
			g, ok := idx.Group(n)
			if !ok || g.Status == types.StatusVoided {
				continue
			}
			g.Renderings = append(g.Renderings, r)
		}
		out = append(out, r)
	}
	return out
}
