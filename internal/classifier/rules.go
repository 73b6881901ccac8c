package classifier

import (
	"strings"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/config"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
)

// Rule is one voidance heuristic. A group is voided when any rule fires.
type Rule interface {
	Name() string
	Fires(group types.InvoiceGroup, events EventIndex) bool
}

// EventIndex holds the invoice numbers named by cancellation events in the
// full, unfiltered record set. It is built once per run and only read.
type EventIndex map[uint64]struct{}

// BuildEventIndex collects the invoice numbers of every cancellation event.
func BuildEventIndex(records []types.StructuredRecord) EventIndex {
	idx := make(EventIndex)
	for _, r := range records {
		if r.Kind == types.KindVoidEvent && r.InvoiceNumber.Valid {
			idx[r.InvoiceNumber.Value] = struct{}{}
		}
	}
	return idx
}

// Has reports whether an event names n.
func (idx EventIndex) Has(n uint64) bool {
	_, ok := idx[n]
	return ok
}

// FilenameMarkerRule fires when a record's entry name carries the
// cancellation marker.
type FilenameMarkerRule struct {
	Marker string
	// Mode is config.FilenameRuleFallback or config.FilenameRuleAlways.
	Mode string
}

func (FilenameMarkerRule) Name() string { return "filename-marker" }

func (r FilenameMarkerRule) Fires(group types.InvoiceGroup, _ EventIndex) bool {
	marker := strings.ToLower(r.Marker)
	if marker == "" || r.Mode == config.FilenameRuleOff {
		return false
	}
	for _, rec := range group.Records {
		if r.Mode == config.FilenameRuleFallback && rec.HasVoidFields() {
			continue
		}
		if strings.Contains(strings.ToLower(rec.SourceName), marker) {
			return true
		}
	}
	return false
}

// ContentSignalRule fires when a record's own content reports a
// cancellation.
type ContentSignalRule struct{}

func (ContentSignalRule) Name() string { return "content-signal" }

func (ContentSignalRule) Fires(group types.InvoiceGroup, _ EventIndex) bool {
	for _, rec := range group.Records {
		if rec.VoidSignal {
			return true
		}
	}
	return false
}

// DuplicateFilingRule fires when more than one record shares the invoice
// number.
type DuplicateFilingRule struct{}

func (DuplicateFilingRule) Name() string { return "duplicate-filing" }

func (DuplicateFilingRule) Fires(group types.InvoiceGroup, _ EventIndex) bool {
	return len(group.Records) > 1
}

// UnlinkedEventRule fires when a cancellation event anywhere in the input
// names the group's invoice number, even if the filters excluded it.
type UnlinkedEventRule struct{}

func (UnlinkedEventRule) Name() string { return "unlinked-event" }

func (UnlinkedEventRule) Fires(group types.InvoiceGroup, events EventIndex) bool {
	return events.Has(group.InvoiceNumber)
}
