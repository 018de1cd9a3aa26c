package wizard

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Gate modes. A hard gate blocks advancement on a failing verdict, a
// soft gate records the verdict but never blocks, none skips
// evaluation entirely.
const (
	GateNone = "none"
	GateSoft = "soft"
	GateHard = "hard"
)

// Definition is the parsed, immutable form of a stored wizard config.
// Step order and ids are stable for a given (WizardID, Version).
type Definition struct {
	WizardID string `json:"wizard_id"`
	Version  int    `json:"version"`
	Title    string `json:"title"`
	Steps    []Step `json:"steps"`

	index map[string]int
}

type Step struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Gate      Gate       `json:"gate"`
	Questions []Question `json:"questions"`
}

type Gate struct {
	Mode     string `json:"mode"`
	RubricID string `json:"rubric_id,omitempty"`
}

// Question carries only what the engine reads; presentation fields
// (labels, help text, UI hints) stay in the stored JSON and are served
// to clients verbatim.
type Question struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
}

// Parse decodes a stored wizard config and validates it.
func Parse(raw []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode wizard config: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	def.buildIndex()
	return &def, nil
}

func (d *Definition) buildIndex() {
	d.index = make(map[string]int, len(d.Steps))
	for i, s := range d.Steps {
		d.index[s.ID] = i
	}
}

// Validate enforces the publication invariants: non-empty ordered
// steps, unique step ids, a known gate mode per step, and a rubric
// reference wherever the gate mode requires evaluation.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.WizardID) == "" {
		return fmt.Errorf("wizard_id required")
	}
	if d.Version <= 0 {
		return fmt.Errorf("version must be positive, got %d", d.Version)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("wizard %s:%d has no steps", d.WizardID, d.Version)
	}

	seen := make(map[string]bool, len(d.Steps))
	for i, s := range d.Steps {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("step %d has empty id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate step id %q", s.ID)
		}
		seen[s.ID] = true

		mode := s.Gate.Mode
		if mode == "" {
			mode = GateNone
		}
		switch mode {
		case GateNone:
		case GateSoft, GateHard:
			if strings.TrimSpace(s.Gate.RubricID) == "" {
				return fmt.Errorf("step %q: gate mode %q requires a rubric_id", s.ID, mode)
			}
		default:
			return fmt.Errorf("step %q: unknown gate mode %q", s.ID, mode)
		}

		qSeen := make(map[string]bool, len(s.Questions))
		for _, q := range s.Questions {
			if strings.TrimSpace(q.ID) == "" {
				return fmt.Errorf("step %q has a question with empty id", s.ID)
			}
			if qSeen[q.ID] {
				return fmt.Errorf("step %q: duplicate question id %q", s.ID, q.ID)
			}
			qSeen[q.ID] = true
		}
	}
	return nil
}

// ResolveStep returns the step definition for id, or ok=false when the
// id does not belong to this wizard.
func (d *Definition) ResolveStep(id string) (Step, bool) {
	i, ok := d.index[id]
	if !ok {
		return Step{}, false
	}
	return d.Steps[i], true
}

// GateMode normalizes an unset mode to none.
func (s Step) GateMode() string {
	if s.Gate.Mode == "" {
		return GateNone
	}
	return s.Gate.Mode
}

func (d *Definition) FirstStep() Step {
	return d.Steps[0]
}

// NextStep returns the step after id in sequence, or ok=false when id
// is the last step or unknown.
func (d *Definition) NextStep(id string) (Step, bool) {
	i, ok := d.index[id]
	if !ok || i+1 >= len(d.Steps) {
		return Step{}, false
	}
	return d.Steps[i+1], true
}

// IsLast reports whether id names the final step in sequence.
func (d *Definition) IsLast(id string) bool {
	i, ok := d.index[id]
	return ok && i == len(d.Steps)-1
}
