package checklist

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a checklist.
type State int

const (
	// StateFresh means no report is loaded.
	StateFresh State = iota
	// StatePopulated means a report is loaded and rows can be toggled.
	StatePopulated
	// StateValidationFailed means a completion attempt found open rows.
	StateValidationFailed
	// StateComplete means every row was acknowledged and rating is unlocked.
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StatePopulated:
		return "populated"
	case StateValidationFailed:
		return "validation_failed"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText lets states serialize as their names.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateFresh, StatePopulated, StateValidationFailed, StateComplete} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown checklist state %q", text)
}

var (
	// ErrNoReport is returned for actions on a checklist with no report loaded.
	ErrNoReport = errors.New("no report loaded")
	// ErrChecklistComplete is returned for toggles after completion.
	ErrChecklistComplete = errors.New("checklist already complete")
	// ErrUnknownKey is returned when toggling a key that is not a row of the
	// loaded report.
	ErrUnknownKey = errors.New("unknown checklist key")
)

// Row is one rendered checklist line.
type Row struct {
	IssueRecord
	Key          string `json:"key"`
	Acknowledged bool   `json:"acknowledged"`
	// Flagged marks an unacknowledged row after a failed completion attempt.
	Flagged bool `json:"flagged"`
}

// Checklist drives one viewer's acknowledgement flow for one report at a
// time: Fresh -> Populated -> ValidationFailed -> Complete.
type Checklist struct {
	store      *Store
	issues     []IssueRecord
	keys       []string
	state      State
	highlight  bool
	last       Outcome
	onComplete func(Outcome)
}

// New returns a Fresh checklist.
func New() *Checklist {
	return &Checklist{store: NewStore()}
}

// OnComplete registers fn to run when a completion attempt succeeds.
func (c *Checklist) OnComplete(fn func(Outcome)) {
	c.onComplete = fn
}

// Load shows reportText. Loading the same text again is a re-render and keeps
// all state; different text discards every acknowledgement.
func (c *Checklist) Load(reportText string) {
	if changed := c.store.Bind(reportText); changed || c.state == StateFresh {
		c.issues = ExtractIssues(reportText)
		h, _ := c.store.ContentHash()
		c.keys = RowKeys(h, c.issues)
		c.state = StatePopulated
		c.highlight = false
		c.last = Outcome{}
	}
	c.register()
}

// Clear returns the checklist to Fresh.
func (c *Checklist) Clear() {
	c.store.Unbind()
	c.issues = nil
	c.keys = nil
	c.state = StateFresh
	c.highlight = false
	c.last = Outcome{}
}

// register is the render pass: every displayed row registers its key.
func (c *Checklist) register() {
	for _, key := range c.keys {
		c.store.RegisterKey(key)
	}
}

// Rows renders the checklist, registering each row's key.
func (c *Checklist) Rows() []Row {
	c.register()
	rows := make([]Row, len(c.issues))
	for i, issue := range c.issues {
		ack := c.store.Acknowledged(c.keys[i])
		rows[i] = Row{
			IssueRecord:  issue,
			Key:          c.keys[i],
			Acknowledged: ack,
			Flagged:      c.highlight && !ack,
		}
	}
	return rows
}

// Toggle sets the acknowledgement for a row key.
func (c *Checklist) Toggle(key string, acknowledged bool) error {
	switch c.state {
	case StateFresh:
		return ErrNoReport
	case StateComplete:
		return ErrChecklistComplete
	}
	if !c.hasKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	c.store.SetAcknowledged(key, acknowledged)
	if c.state == StateValidationFailed {
		// The highlight stays until the next completion attempt.
		c.state = StatePopulated
	}
	return nil
}

// ToggleSequence acknowledges every row whose sequence number is seq.
func (c *Checklist) ToggleSequence(seq string, acknowledged bool) error {
	found := false
	for i, issue := range c.issues {
		if issue.SequenceNumber != seq {
			continue
		}
		found = true
		if err := c.Toggle(c.keys[i], acknowledged); err != nil {
			return err
		}
	}
	if !found {
		if c.state == StateFresh {
			return ErrNoReport
		}
		return fmt.Errorf("%w: no row %s", ErrUnknownKey, seq)
	}
	return nil
}

// AcknowledgeAll marks every row acknowledged.
func (c *Checklist) AcknowledgeAll() error {
	for _, key := range c.keys {
		if err := c.Toggle(key, true); err != nil {
			return err
		}
	}
	return nil
}

// Complete is the "mark reviewed" action. An empty report is informational
// and leaves the state untouched.
func (c *Checklist) Complete() (Outcome, error) {
	switch c.state {
	case StateFresh:
		return Outcome{}, ErrNoReport
	case StateComplete:
		return c.last, nil
	}

	c.register()
	outcome := Reconcile(c.issues, c.store)
	c.last = outcome

	switch outcome.Kind {
	case OutcomeIncomplete:
		c.state = StateValidationFailed
		c.highlight = true
	case OutcomeComplete:
		c.state = StateComplete
		c.highlight = false
		if c.onComplete != nil {
			c.onComplete(outcome)
		}
	}
	return outcome, nil
}

func (c *Checklist) hasKey(key string) bool {
	for _, k := range c.keys {
		if k == key {
			return true
		}
	}
	return false
}

// State returns the current lifecycle state.
func (c *Checklist) State() State { return c.state }

// Highlighted reports whether unacknowledged rows are flagged.
func (c *Checklist) Highlighted() bool { return c.highlight }

// Issues returns the extracted issues of the loaded report.
func (c *Checklist) Issues() []IssueRecord { return c.issues }

// Total is the AI issue count of the loaded report.
func (c *Checklist) Total() int { return len(c.issues) }

// AcknowledgedCount counts registered, acknowledged rows.
func (c *Checklist) AcknowledgedCount() int { return c.store.AcknowledgedCount() }

// LastOutcome is the result of the most recent completion attempt.
func (c *Checklist) LastOutcome() Outcome { return c.last }

// ContentHash returns the hash of the loaded report.
func (c *Checklist) ContentHash() (ContentHash, bool) { return c.store.ContentHash() }
