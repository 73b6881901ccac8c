// =============================================================================
// NF-e / DANFE Filter - Shared Types
// =============================================================================
//
// This package contains the domain types shared by the extractor, the index,
// the classifier, the report formatter and the pipeline. Keeping them here
// avoids import cycles between those packages.
//
// =============================================================================

package types

import (
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// INVOICE NUMBER
// =============================================================================

// InvoiceNumber is an optional non-negative invoice number (número da NF).
// The zero value is "unknown".
type InvoiceNumber struct {
	Value uint64
	Valid bool
}

// KnownNumber returns a valid InvoiceNumber.
func KnownNumber(n uint64) InvoiceNumber {
	return InvoiceNumber{Value: n, Valid: true}
}

// ParseInvoiceNumber accepts only a non-empty run of ASCII digits.
func ParseInvoiceNumber(s string) (InvoiceNumber, bool) {
	if !IsDigits(s) {
		return InvoiceNumber{}, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return InvoiceNumber{}, false
	}
	return KnownNumber(n), true
}

func (n InvoiceNumber) String() string {
	if !n.Valid {
		return "?"
	}
	return strconv.FormatUint(n.Value, 10)
}

// IsDigits reports whether s is a non-empty string of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// =============================================================================
// DOCUMENT KIND AND STATUS
// =============================================================================

// DocumentKind classifies a structured record.
type DocumentKind string

const (
	KindSale      DocumentKind = "sale"
	KindShipment  DocumentKind = "shipment"
	KindVoidEvent DocumentKind = "voidEvent"
	KindUnknown   DocumentKind = "unknown"
)

// Folder returns the output sub-folder used when entries are split by kind.
// Unknown kinds have no folder.
func (k DocumentKind) Folder() string {
	switch k {
	case KindSale:
		return "venda"
	case KindShipment:
		return "remessa"
	case KindVoidEvent:
		return "eventos"
	default:
		return ""
	}
}

// Status is the classification of an invoice group.
type Status string

const (
	StatusAuthorized Status = "authorized"
	StatusVoided     Status = "voided"
)

// Label returns the Portuguese label used in reports.
func (s Status) Label() string {
	if s == StatusVoided {
		return "cancelada"
	}
	return "autorizada"
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// StructuredRecord is one parsed NF-e XML document.
type StructuredRecord struct {
	// SourceName is the archive entry name.
	SourceName string

	InvoiceNumber InvoiceNumber

	// OrderID holds the 4-5 digit pedido; empty means unknown.
	OrderID string

	Kind DocumentKind

	// VoidSignal is true when the document content itself asserts or
	// reports a cancellation.
	VoidSignal bool

	// Raw fields the voidance rules look at.
	RootElement      string
	EventType        string
	StatusCodes      []string
	EventDescription string
	Reason           string

	// Parsed is false when the XML could not be decoded at all.
	Parsed bool
}

// HasOrderID reports whether an order id was extracted.
func (r StructuredRecord) HasOrderID() bool {
	return r.OrderID != ""
}

// HasVoidFields reports whether the content exposed any field relevant to
// voidance detection.
func (r StructuredRecord) HasVoidFields() bool {
	return r.EventType != "" || len(r.StatusCodes) > 0 || r.EventDescription != "" || r.Reason != ""
}

// Rendering is one DANFE PDF, identified by its entry name.
type Rendering struct {
	SourceName    string
	InvoiceNumber InvoiceNumber
}

// InvoiceGroup is every record and rendering sharing one invoice number.
// Status is decided from Records only.
type InvoiceGroup struct {
	InvoiceNumber uint64
	Records       []StructuredRecord
	Renderings    []Rendering
	Status        Status
}

// Kind returns the group's document kind: shipment wins over sale, and a
// group made only of cancellation events is a voidEvent group.
func (g InvoiceGroup) Kind() DocumentKind {
	kind := KindUnknown
	for _, r := range g.Records {
		switch r.Kind {
		case KindShipment:
			return KindShipment
		case KindSale:
			kind = KindSale
		case KindVoidEvent:
			if kind == KindUnknown {
				kind = KindVoidEvent
			}
		}
	}
	return kind
}

// OrderID returns the first order id found among the group's records.
func (g InvoiceGroup) OrderID() string {
	for _, r := range g.Records {
		if r.HasOrderID() {
			return r.OrderID
		}
	}
	return ""
}

// =============================================================================
// FILTER CRITERIA
// =============================================================================

// FilterMode selects which filters are active.
type FilterMode string

const (
	ModeOrder         FilterMode = "pedido"
	ModeRange         FilterMode = "intervalo"
	ModeOrderAndRange FilterMode = "pedido+intervalo"
)

// ParseFilterMode accepts the canonical names plus a few aliases.
func ParseFilterMode(s string) (FilterMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pedido", "order":
		return ModeOrder, true
	case "intervalo", "range":
		return ModeRange, true
	case "pedido+intervalo", "ambos", "both", "order+range":
		return ModeOrderAndRange, true
	default:
		return "", false
	}
}

// Label returns the text shown in the report.
func (m FilterMode) Label() string {
	switch m {
	case ModeOrder:
		return "Filtrar por Pedido"
	case ModeRange:
		return "Filtrar por Intervalo de NF"
	case ModeOrderAndRange:
		return "Filtrar por Pedido + Intervalo"
	default:
		return string(m)
	}
}

// UsesOrder reports whether the mode filters by order id.
func (m FilterMode) UsesOrder() bool {
	return m == ModeOrder || m == ModeOrderAndRange
}

// UsesRange reports whether the mode filters by invoice-number range.
func (m FilterMode) UsesRange() bool {
	return m == ModeRange || m == ModeOrderAndRange
}

// NumberRange is an inclusive [Low, High] invoice-number range.
type NumberRange struct {
	Low  uint64
	High uint64
}

// Contains is inclusive on both ends.
func (r NumberRange) Contains(n uint64) bool {
	return r.Low <= n && n <= r.High
}

// FilterCriteria is the user's intent for one run. Build it with
// NewFilterCriteria; it is not mutated afterwards.
type FilterCriteria struct {
	Mode     FilterMode
	orderIDs map[string]struct{}
	Range    *NumberRange
}

// NewFilterCriteria copies its inputs. Order ids are trimmed and empty ones
// dropped. The range is only kept when the mode uses it.
func NewFilterCriteria(mode FilterMode, orderIDs []string, rng *NumberRange) FilterCriteria {
	c := FilterCriteria{Mode: mode}
	if mode.UsesOrder() {
		c.orderIDs = make(map[string]struct{}, len(orderIDs))
		for _, id := range orderIDs {
			id = strings.TrimSpace(id)
			if id != "" {
				c.orderIDs[id] = struct{}{}
			}
		}
	}
	if mode.UsesRange() && rng != nil {
		r := *rng
		c.Range = &r
	}
	return c
}

// HasOrderFilter reports whether an order filter is active.
func (c FilterCriteria) HasOrderFilter() bool {
	return len(c.orderIDs) > 0
}

// HasRangeFilter reports whether a range filter is active.
func (c FilterCriteria) HasRangeFilter() bool {
	return c.Range != nil
}

// MatchesOrder is true when no order filter is active or id is in the set.
func (c FilterCriteria) MatchesOrder(id string) bool {
	if !c.HasOrderFilter() {
		return true
	}
	_, ok := c.orderIDs[id]
	return ok
}

// MatchesRange is true when no range filter is active or n is inside it.
func (c FilterCriteria) MatchesRange(n uint64) bool {
	if c.Range == nil {
		return true
	}
	return c.Range.Contains(n)
}

// OrderIDs returns the order id set, sorted.
func (c FilterCriteria) OrderIDs() []string {
	ids := make([]string, 0, len(c.orderIDs))
	for id := range c.orderIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SplitOrderIDs splits a comma-separated list of order ids.
func SplitOrderIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
