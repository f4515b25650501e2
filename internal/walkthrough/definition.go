package walkthrough

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Definition is a walkthrough as authored in a file.
type Definition struct {
	// Name identifies the walkthrough.
	Name string `yaml:"name" json:"name"`

	// Description explains what the walkthrough presents.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Speed is the default speed multiplier. Zero means unset.
	Speed float64 `yaml:"speed,omitempty" json:"speed,omitempty"`

	// Steps are revealed in order.
	Steps []StepDef `yaml:"steps" json:"steps"`
}

// StepDef is one step as authored.
type StepDef struct {
	// ID is optional; Steps assigns one when empty.
	ID string `yaml:"id,omitempty" json:"id,omitempty"`

	// DelayMS is the time before the step is revealed at speed 1.
	DelayMS int64 `yaml:"delay_ms" json:"delay_ms"`

	// Payload is opaque content handed to whatever presents the step.
	Payload map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// Error code constants for definition loading.
const (
	ErrCodeReadFailed  = "E201" // File could not be read
	ErrCodeParseFailed = "E202" // Syntax error
	ErrCodeSchema      = "E203" // CUE schema violation
	ErrCodeInvalid     = "E204" // Semantic validation failed
	ErrCodeUnsupported = "E205" // Unknown file extension
)

// LoadError reports why a definition could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Pos     token.Pos    // CUE position if available
	Fields  []FieldError // Populated for ErrCodeInvalid
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the LoadError code of err, or "" if err is not a LoadError.
func ErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// Load reads, parses and validates a definition file.
// The format is chosen by extension: .yaml/.yml or .cue.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("failed to read walkthrough file: %v", err), Path: path}
	}

	var def *Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		def, err = ParseYAML(data)
	case ".cue":
		def, err = ParseCUE(path, data)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported file extension %q (want .yaml, .yml or .cue)", ext), Path: path}
	}
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && le.Path == "" {
			le.Path = path
		}
		return nil, err
	}
	return def, nil
}

// ParseYAML decodes and validates a YAML definition.
// Unknown fields are rejected.
func ParseYAML(data []byte) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeParseFailed, Message: "empty document"}
		}
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	return finish(&def)
}

// finish normalizes and validates a decoded definition.
func finish(def *Definition) (*Definition, error) {
	normalize(def)
	if errs := Validate(def); len(errs) > 0 {
		return nil, &LoadError{
			Code:    ErrCodeInvalid,
			Message: fmt.Sprintf("invalid walkthrough: %s", errs[0].Error()),
			Fields:  errs,
		}
	}
	return def, nil
}

// normalize trims and NFC-normalizes the name and step IDs in place.
func normalize(def *Definition) {
	def.Name = NormalizeID(def.Name)
	for i := range def.Steps {
		def.Steps[i].ID = NormalizeID(def.Steps[i].ID)
	}
}

// NormalizeID trims surrounding space and applies Unicode NFC.
func NormalizeID(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
