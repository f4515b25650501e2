package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/walkthrough/internal/engine"
	"github.com/roach88/walkthrough/internal/walkthrough"
)

// loadDefinition loads a walkthrough file and reports failures through f.
// Unreadable or unsupported files are command errors (exit 2); parse and
// validation problems are failures (exit 1).
func loadDefinition(f *OutputFormatter, path string) (*walkthrough.Definition, error) {
	def, err := walkthrough.Load(path)
	if err == nil {
		return def, nil
	}

	var le *walkthrough.LoadError
	if !errors.As(err, &le) {
		return nil, fail(f, ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	exitCode := ExitFailure
	if le.Code == walkthrough.ErrCodeReadFailed || le.Code == walkthrough.ErrCodeUnsupported {
		exitCode = ExitCommandError
	}

	var details any
	if len(le.Fields) > 0 {
		details = le.Fields
	}
	return nil, fail(f, exitCode, le.Code, err.Error(), details)
}

// resolveSpeed picks the starting speed: the --speed flag, then
// WALKTHROUGH_SPEED, then the walkthrough's own default.
func resolveSpeed(opts *RootOptions, flag string, flagSet bool, def *walkthrough.Definition) (float64, error) {
	if flagSet {
		speed, err := engine.ParseSpeed(flag)
		if err != nil {
			return 0, fmt.Errorf("--speed: %w", err)
		}
		return speed, nil
	}
	if opts.Env.Speed.IsSet() {
		return float64(opts.Env.Speed), nil
	}
	return def.DefaultSpeed(), nil
}
