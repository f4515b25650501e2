package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/walkthrough/internal/walkthrough"
)

// FileResult is the validation outcome of one walkthrough file.
type FileResult struct {
	Path    string                   `json:"path"`
	Valid   bool                     `json:"valid"`
	Name    string                   `json:"name,omitempty"`
	Steps   int                      `json:"steps,omitempty"`
	Code    string                   `json:"code,omitempty"`
	Message string                   `json:"message,omitempty"`
	Line    int                      `json:"line,omitempty"`
	Errors  []walkthrough.FieldError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileResult `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate walkthrough files",
		Long: `Parse and validate YAML (.yaml, .yml) and CUE (.cue) walkthrough files.

Every problem in a file is reported with its field path, such as
steps[2].delay_ms. CUE files are also checked against the walkthrough schema.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - A file could not be read or has an unsupported extension`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	logger := opts.Logger()

	result := ValidationResult{Valid: true, Files: make([]FileResult, 0, len(paths))}
	exitCode := ExitSuccess

	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		fr := validateFile(path)
		if !fr.Valid {
			result.Valid = false
			logger.Debug("walkthrough invalid", "path", path, "code", fr.Code)
			code := ExitFailure
			if fr.Code == walkthrough.ErrCodeReadFailed || fr.Code == walkthrough.ErrCodeUnsupported {
				code = ExitCommandError
			}
			exitCode = max(exitCode, code)
		}
		result.Files = append(result.Files, fr)
	}

	if formatter.JSON() {
		return outputValidateJSON(formatter, result, exitCode)
	}
	return outputValidateText(formatter, result, exitCode)
}

// validateFile loads one file and converts the outcome to a FileResult.
func validateFile(path string) FileResult {
	def, err := walkthrough.Load(path)
	if err == nil {
		return FileResult{Path: path, Valid: true, Name: def.Name, Steps: len(def.Steps)}
	}

	fr := FileResult{Path: path, Code: ErrCodeGeneric, Message: err.Error()}
	var le *walkthrough.LoadError
	if errors.As(err, &le) {
		fr.Code = le.Code
		fr.Message = le.Message
		fr.Errors = le.Fields
		if le.Pos.IsValid() {
			fr.Line = le.Pos.Line()
		}
	}
	return fr
}

func outputValidateJSON(formatter *OutputFormatter, result ValidationResult, exitCode int) error {
	if result.Valid {
		return formatter.Success(result)
	}

	var first FileResult
	for _, fr := range result.Files {
		if !fr.Valid {
			first = fr
			break
		}
	}

	formatter.mu.Lock()
	err := formatter.encode(CLIResponse{
		Status: "error",
		Data:   result,
		Error: &CLIError{
			Code:    first.Code,
			Message: first.Message,
		},
	})
	formatter.mu.Unlock()
	if err != nil {
		return err
	}

	return &ExitError{Code: exitCode, Message: "validation failed", Reported: true}
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult, exitCode int) error {
	invalid := 0
	for _, fr := range result.Files {
		if fr.Valid {
			formatter.Printf("✓ %s (%s, %d steps)\n", fr.Path, fr.Name, fr.Steps)
			continue
		}

		invalid++
		formatter.Printf("✗ %s\n", fr.Path)
		if len(fr.Errors) == 0 {
			if fr.Line > 0 {
				formatter.Printf("  line %d: %s: %s\n", fr.Line, fr.Code, fr.Message)
			} else {
				formatter.Printf("  %s: %s\n", fr.Code, fr.Message)
			}
			continue
		}
		for _, fe := range fr.Errors {
			formatter.Printf("  %s: %s: %s\n", fr.Code, fe.Field, fe.Message)
		}
	}

	if result.Valid {
		return nil
	}
	return &ExitError{
		Code:     exitCode,
		Message:  fmt.Sprintf("validation failed: %d of %d file(s) invalid", invalid, len(result.Files)),
		Reported: true,
	}
}
