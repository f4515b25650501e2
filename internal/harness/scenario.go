package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/walkthrough/internal/engine"
	"github.com/roach88/walkthrough/internal/walkthrough"
)

// Scenario defines a conformance test scenario.
// Scenarios drive an engine through a script and assert on the resulting
// trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Walkthrough is a path to a walkthrough definition file.
	// Relative paths are resolved against the scenario file's directory.
	Walkthrough string `yaml:"walkthrough,omitempty"`

	// Steps is an inline alternative to Walkthrough.
	Steps []walkthrough.StepDef `yaml:"steps,omitempty"`

	// Speed is the initial speed multiplier. Zero means the walkthrough's
	// default, or 1 for inline steps.
	Speed float64 `yaml:"speed,omitempty"`

	// Script is executed in order against the engine.
	Script []Command `yaml:"script"`

	// Assertions validate the trace and final state after the script.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Command verbs.
const (
	CmdPlay    = "play"
	CmdPause   = "pause"
	CmdReset   = "reset"
	CmdNext    = "next"
	CmdPrev    = "prev"
	CmdDestroy = "destroy"
	CmdAdvance = "advance"
	CmdSpeed   = "speed"
	CmdExpect  = "expect"
)

// Command is one script entry. Exactly one field is set.
//
// In YAML a command is either a bare verb ("play") or a single-key mapping
// ("advance: 500ms", "speed: 2x", "expect: {...}", "do: next").
type Command struct {
	// Do is an engine verb: play, pause, reset, next, prev, destroy.
	Do string

	// Advance moves the virtual clock forward.
	Advance time.Duration

	// Speed is passed to SetSpeed when SetSpeedTo is true.
	Speed      float64
	SetSpeedTo bool

	// Expect compares the engine state at this point of the script.
	Expect *Expect
}

// Kind returns the verb of the command.
func (c Command) Kind() string {
	switch {
	case c.Do != "":
		return c.Do
	case c.SetSpeedTo:
		return CmdSpeed
	case c.Expect != nil:
		return CmdExpect
	default:
		return CmdAdvance
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		c.Do = node.Value
		return validateVerb(node, c.Do)

	case yaml.MappingNode:
		if err := checkKeys(node, "do", CmdAdvance, CmdSpeed, CmdExpect); err != nil {
			return err
		}
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: command must have exactly one key", node.Line)
		}

		key, value := node.Content[0].Value, node.Content[1]
		switch key {
		case "do":
			c.Do = value.Value
			return validateVerb(value, c.Do)

		case CmdAdvance:
			d, err := time.ParseDuration(value.Value)
			if err != nil {
				return fmt.Errorf("line %d: advance: %w", value.Line, err)
			}
			if d < 0 {
				return fmt.Errorf("line %d: advance must not be negative, got %v", value.Line, d)
			}
			c.Advance = d
			return nil

		case CmdSpeed:
			speed, err := engine.ParseSpeed(value.Value)
			if err != nil {
				return fmt.Errorf("line %d: %w", value.Line, err)
			}
			c.Speed = speed
			c.SetSpeedTo = true
			return nil

		case CmdExpect:
			if err := checkKeys(value, expectKeys...); err != nil {
				return err
			}
			var exp Expect
			if err := value.Decode(&exp); err != nil {
				return fmt.Errorf("line %d: expect: %w", value.Line, err)
			}
			c.Expect = &exp
			return nil
		}
	}

	return fmt.Errorf("line %d: command must be a verb or a single-key mapping", node.Line)
}

func validateVerb(node *yaml.Node, verb string) error {
	switch verb {
	case CmdPlay, CmdPause, CmdReset, CmdNext, CmdPrev, CmdDestroy:
		return nil
	}
	return fmt.Errorf("line %d: unknown command %q", node.Line, verb)
}

// checkKeys rejects mapping keys outside allowed. Custom unmarshalers do not
// inherit the decoder's KnownFields setting.
func checkKeys(node *yaml.Node, allowed ...string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		known := false
		for _, a := range allowed {
			if key.Value == a {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("line %d: unknown field %q", key.Line, key.Value)
		}
	}
	return nil
}

var expectKeys = []string{"index", "visible", "playing", "complete", "speed", "total", "current"}

// Expect lists engine state values to compare. Nil fields are not checked.
type Expect struct {
	Index    *int     `yaml:"index,omitempty"`
	Visible  *int     `yaml:"visible,omitempty"`
	Playing  *bool    `yaml:"playing,omitempty"`
	Complete *bool    `yaml:"complete,omitempty"`
	Speed    *float64 `yaml:"speed,omitempty"`
	Total    *int     `yaml:"total,omitempty"`

	// Current is the ID of the current step; "" expects no current step.
	Current *string `yaml:"current,omitempty"`
}

func (e *Expect) empty() bool {
	return e.Index == nil && e.Visible == nil && e.Playing == nil && e.Complete == nil &&
		e.Speed == nil && e.Total == nil && e.Current == nil
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "event_count": Check an event type appears exactly Count times
	// - "event_order": Check event types appear in order
	// - "step_sequence": Check the IDs of step_changed events
	// - "final_state": Compare the state after the script
	Type string `yaml:"type"`

	// Event is the event type (used by event_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of occurrences (used by event_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected event order (used by event_order).
	Events []string `yaml:"events,omitempty"`

	// IDs is the expected step ID sequence (used by step_sequence).
	IDs []string `yaml:"ids,omitempty"`

	// Expect contains expected state values (used by final_state).
	Expect *Expect `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount   = "event_count"
	AssertEventOrder   = "event_order"
	AssertStepSequence = "step_sequence"
	AssertFinalState   = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative walkthrough path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Walkthrough != "" && !filepath.IsAbs(scenario.Walkthrough) {
		scenario.Walkthrough = filepath.Join(filepath.Dir(path), scenario.Walkthrough)
	}
	if scenario.Walkthrough != "" {
		if _, err := os.Stat(scenario.Walkthrough); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: walkthrough file not found: %s", scenario.Walkthrough)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Walkthrough != "" && len(s.Steps) > 0 {
		return fmt.Errorf("walkthrough and steps are mutually exclusive")
	}

	if s.Speed < 0 {
		return fmt.Errorf("speed must be positive, got %v", s.Speed)
	}

	if len(s.Script) == 0 {
		return fmt.Errorf("script list is required and must be non-empty")
	}

	for i, cmd := range s.Script {
		if cmd.Expect != nil && cmd.Expect.empty() {
			return fmt.Errorf("script[%d].expect: at least one field is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventCount:
		if !isEventType(a.Event) {
			return fmt.Errorf("assertions[%d]: event must be one of %s, %s, %s for event_count", index, EventStepChanged, EventCompleted, EventReset)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
		for _, ev := range a.Events {
			if !isEventType(ev) {
				return fmt.Errorf("assertions[%d]: unknown event type %q", index, ev)
			}
		}
	case AssertStepSequence:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for step_sequence (use [] for none)", index)
		}
	case AssertFinalState:
		if a.Expect == nil || a.Expect.empty() {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func isEventType(s string) bool {
	return s == EventStepChanged || s == EventCompleted || s == EventReset
}
