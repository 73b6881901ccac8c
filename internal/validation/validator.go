// =============================================================================
// NF-e / DANFE Filter - Input Validation
// =============================================================================
//
// This module checks a filter request before any document is read and
// turns it into FilterCriteria.
//
// ERROR HANDLING:
//   - Problems are collected, not returned one at a time, so the user sees
//     everything wrong with the request at once.
//   - Each problem names the field, the offending value and the rule.
//   - The collected problems are returned as one *InputError, which matches
//     ErrInput under errors.Is. Processing must stop; no archive is built.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
)

// ErrInput is the sentinel for every invalid-request error.
var ErrInput = errors.New("invalid input")

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError is a single problem with the request.
type ValidationError struct {
	// Field is the request field at fault ("modo", "pedido", "nf_inicio"...).
	Field string

	// Value is the offending value, if any.
	Value string

	// Rule is a short identifier of the violated rule.
	Rule string

	// Message is the human-readable explanation, in Portuguese.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("campo '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("campo '%s': %s (valor: '%s')", e.Field, e.Message, e.Value)
}

// InputError aggregates every problem found in one request.
type InputError struct {
	Errors []*ValidationError
}

func (e *InputError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Message
	}
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Message
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInput) true.
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}

// Messages returns the individual problem descriptions.
func (e *InputError) Messages() []string {
	out := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		out[i] = ve.Error()
	}
	return out
}

// =============================================================================
// REQUEST VALIDATION
// =============================================================================

// Request is the raw user input for one run.
type Request struct {
	// Mode is the filter mode name (see types.ParseFilterMode).
	Mode string

	// OrderIDs are the requested order ids, untrimmed.
	OrderIDs []string

	// Low and High are the range bounds as typed; empty means absent.
	Low  string
	High string

	// HaveRecords and HaveRenderings report which archives were supplied.
	HaveRecords    bool
	HaveRenderings bool
}

// Validate checks the request and builds the filter criteria.
//
// RETURNS:
//   - The criteria, when the request is valid.
//   - An *InputError listing every problem otherwise.
func Validate(req Request) (types.FilterCriteria, error) {
	var problems []*ValidationError
	add := func(field, value, rule, msg string) {
		problems = append(problems, &ValidationError{Field: field, Value: value, Rule: rule, Message: msg})
	}

	if !req.HaveRecords && !req.HaveRenderings {
		add("arquivos", "", "archive_required", "envie pelo menos um dos arquivos ZIP")
	}

	mode, ok := types.ParseFilterMode(req.Mode)
	if !ok {
		add("modo", req.Mode, "mode_unknown", "modo de filtragem desconhecido")
		return types.FilterCriteria{}, &InputError{Errors: problems}
	}

	var ids []string
	for _, id := range req.OrderIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	if mode.UsesOrder() {
		if len(ids) == 0 {
			add("pedido", "", "order_required", "informe o pedido")
		}
		for _, id := range ids {
			if !types.IsDigits(id) {
				add("pedido", id, "order_numeric", "o pedido deve conter apenas dígitos")
			}
		}
		if req.HaveRenderings && !req.HaveRecords {
			add("pedido", "", "order_needs_xml",
				"o filtro por pedido exige o ZIP de XMLs; DANFEs não contêm o pedido")
		}
	}

	var rng *types.NumberRange
	if mode.UsesRange() {
		low, lowOK := parseBound(req.Low, "nf_inicio", "NF inicial", add)
		high, highOK := parseBound(req.High, "nf_fim", "NF final", add)
		if lowOK && highOK {
			if low > high {
				add("nf_inicio", req.Low, "range_order", "a NF inicial deve ser menor ou igual à NF final")
			} else {
				rng = &types.NumberRange{Low: low, High: high}
			}
		}
	}

	if len(problems) > 0 {
		return types.FilterCriteria{}, &InputError{Errors: problems}
	}
	return types.NewFilterCriteria(mode, ids, rng), nil
}

func parseBound(raw, field, label string, add func(field, value, rule, msg string)) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		add(field, "", "range_required", "informe a "+label)
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		add(field, raw, "range_numeric", "a "+label+" deve ser um número não negativo")
		return 0, false
	}
	return n, true
}

// NewInputError wraps a single problem, used for errors detected after
// validation (an upload that is not a ZIP file, for example).
func NewInputError(field, value, rule, msg string) *InputError {
	return &InputError{Errors: []*ValidationError{{Field: field, Value: value, Rule: rule, Message: msg}}}
}
