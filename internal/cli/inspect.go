package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/walkthrough/internal/engine"
	"github.com/roach88/walkthrough/internal/walkthrough"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Speed string
}

// InspectStep is one row of the inspect output.
type InspectStep struct {
	Index       int    `json:"index"`
	ID          string `json:"id,omitempty"` // Empty when assigned at play time
	DelayMS     int64  `json:"delay_ms"`
	EffectiveMS int64  `json:"effective_ms"`
	Payload     any    `json:"payload,omitempty"`
}

// InspectResult is the data payload of `inspect --format json`.
type InspectResult struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Speed       float64       `json:"speed"`
	Steps       []InspectStep `json:"steps"`
	TotalMS     int64         `json:"total_ms"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show a walkthrough's steps and timing",
		Long: `Show every step of a walkthrough with its configured delay, the
effective delay at the chosen speed, and the total auto-play duration.

Examples:
  walkthrough inspect rag.yaml
  walkthrough inspect rag.yaml --speed 4x --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Speed, "speed", "", "speed multiplier (default from file)")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	def, err := loadDefinition(formatter, path)
	if err != nil {
		return err
	}

	speed, err := resolveSpeed(opts.RootOptions, opts.Speed, cmd.Flags().Changed("speed"), def)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeBadSpeed, err.Error(), nil)
	}

	result := inspect(def, speed)
	formatter.VerboseLog("Inspected %s: %d step(s)", path, len(result.Steps))

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputInspectText(formatter, result)
}

// inspect computes the timing table of a definition.
func inspect(def *walkthrough.Definition, speed float64) InspectResult {
	steps := walkthrough.Steps(def, nil)
	result := InspectResult{
		Name:        def.Name,
		Description: def.Description,
		Speed:       speed,
		Steps:       make([]InspectStep, len(steps)),
		TotalMS:     engine.TotalDuration(steps, speed).Milliseconds(),
	}
	for i, step := range steps {
		result.Steps[i] = InspectStep{
			Index:       i,
			ID:          def.Steps[i].ID,
			DelayMS:     step.Delay.Milliseconds(),
			EffectiveMS: engine.EffectiveDelay(step.Delay, speed).Milliseconds(),
			Payload:     step.Payload,
		}
	}
	return result
}

func outputInspectText(f *OutputFormatter, result InspectResult) error {
	f.Printf("%s\n", result.Name)
	if result.Description != "" {
		f.Printf("%s\n", result.Description)
	}
	f.Printf("\n")

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tDELAY\tAT "+engine.FormatSpeed(result.Speed)+"\tPAYLOAD")
	for _, step := range result.Steps {
		id := step.ID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%dms\t%dms\t%s\n",
			step.Index+1, id, step.DelayMS, step.EffectiveMS, payloadText(step.Payload))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	f.Printf("\nTotal: %dms (%d steps)\n", result.TotalMS, len(result.Steps))
	return nil
}
