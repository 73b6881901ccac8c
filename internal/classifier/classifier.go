// =============================================================================
// NF-e / DANFE Filter - Voidance Classifier
// =============================================================================
//
// This module decides whether an invoice group is authorized or voided.
// Detection is an ordered list of rules; the group is voided as soon as
// one of them fires. New heuristics are added by implementing Rule and
// appending it to the list.
//
// DEFAULT RULES (in order):
//   1. filename-marker   entry name contains "-cancelamento"
//   2. content-signal    event type, status code or text reports a cancel
//   3. duplicate-filing  two or more records share the invoice number
//   4. unlinked-event    a cancellation event elsewhere names the invoice
//
// Rules 3 and 4 can be switched off independently in the configuration.
//
// =============================================================================

package classifier

import (
	"io"
	"log/slog"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/config"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
)

// Classifier applies an ordered list of rules.
type Classifier struct {
	rules  []Rule
	logger *slog.Logger
}

// New builds the default rule list from the classification settings.
func New(cfg config.ClassificationSettings, logger *slog.Logger) *Classifier {
	rules := make([]Rule, 0, 4)
	if cfg.FilenameRule != config.FilenameRuleOff {
		rules = append(rules, FilenameMarkerRule{Marker: cfg.FilenameMarker, Mode: cfg.FilenameRule})
	}
	rules = append(rules, ContentSignalRule{})
	if cfg.Rules.DuplicateFiling {
		rules = append(rules, DuplicateFilingRule{})
	}
	if cfg.Rules.UnlinkedEvents {
		rules = append(rules, UnlinkedEventRule{})
	}
	return NewWithRules(logger, rules...)
}

// NewWithRules creates a Classifier with an explicit rule list.
func NewWithRules(logger *slog.Logger, rules ...Rule) *Classifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Classifier{rules: rules, logger: logger}
}

// Rules returns the names of the active rules, in order.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}

// Classify returns the status of one group and the name of the rule that
// voided it (empty when authorized).
func (c *Classifier) Classify(group types.InvoiceGroup, events EventIndex) (types.Status, string) {
	for _, rule := range c.rules {
		if rule.Fires(group, events) {
			c.logger.Debug("invoice voided", "nf", group.InvoiceNumber, "rule", rule.Name())
			return types.StatusVoided, rule.Name()
		}
	}
	return types.StatusAuthorized, ""
}

// ClassifyAll sets Status on every group in place.
func (c *Classifier) ClassifyAll(groups []types.InvoiceGroup, events EventIndex) {
	for i := range groups {
		groups[i].Status, _ = c.Classify(groups[i], events)
	}
}
