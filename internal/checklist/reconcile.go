package checklist

import "fmt"

// OutcomeKind classifies a completion attempt.
type OutcomeKind int

const (
	// OutcomeEmpty means the report has no checklist items.
	OutcomeEmpty OutcomeKind = iota
	// OutcomeIncomplete means at least one item is unacknowledged.
	OutcomeIncomplete
	// OutcomeComplete means every item is acknowledged.
	OutcomeComplete
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmpty:
		return "empty"
	case OutcomeIncomplete:
		return "incomplete"
	case OutcomeComplete:
		return "complete"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// MarshalText lets outcomes serialize as their names.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses an outcome name written by MarshalText.
func (k *OutcomeKind) UnmarshalText(text []byte) error {
	for _, kind := range []OutcomeKind{OutcomeEmpty, OutcomeIncomplete, OutcomeComplete} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Outcome is the result of reconciling acknowledgements against the
// extracted issues.
type Outcome struct {
	Kind         OutcomeKind `json:"outcome"`
	Acknowledged int         `json:"acknowledged"`
	Total        int         `json:"total"`
}

// Unacknowledged is the number of items still open.
func (o Outcome) Unacknowledged() int {
	if o.Total < o.Acknowledged {
		return 0
	}
	return o.Total - o.Acknowledged
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeEmpty:
		return "no checklist items found"
	case OutcomeComplete:
		return fmt.Sprintf("all %d items acknowledged", o.Total)
	default:
		return fmt.Sprintf("%d of %d items acknowledged, %d remaining", o.Acknowledged, o.Total, o.Unacknowledged())
	}
}

// Reconcile compares the acknowledged rows in store against extracted. Only
// keys derived from extracted under the store's bound content count.
func Reconcile(extracted []IssueRecord, store *Store) Outcome {
	total := len(extracted)
	if total == 0 {
		return Outcome{Kind: OutcomeEmpty}
	}

	acknowledged := 0
	if h, ok := store.ContentHash(); ok {
		for _, key := range RowKeys(h, extracted) {
			if store.Registered(key) && store.Acknowledged(key) {
				acknowledged++
			}
		}
	}

	if acknowledged == total {
		return Outcome{Kind: OutcomeComplete, Acknowledged: acknowledged, Total: total}
	}
	return Outcome{Kind: OutcomeIncomplete, Acknowledged: acknowledged, Total: total}
}
