package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/walkthrough/internal/engine"
	"github.com/roach88/walkthrough/internal/walkthrough"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Speed       string // --speed, e.g. "2x"
	Interactive bool   // read commands from stdin instead of auto-playing
}

// Play event names, as printed by `play --format json`.
const (
	PlayEventStarted     = "started"
	PlayEventStepChanged = "step_changed"
	PlayEventCompleted   = "completed"
	PlayEventReset       = "reset"
	PlayEventStatus      = "status"
	PlayEventStopped     = "stopped"
	PlayEventError       = "error"
)

// PlayEvent is one line of `play --format json` output.
type PlayEvent struct {
	Event   string  `json:"event"`
	Name    string  `json:"name,omitempty"`
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	StepID  string  `json:"step_id,omitempty"`
	Payload any     `json:"payload,omitempty"`
	Speed   float64 `json:"speed,omitempty"`
	Playing bool    `json:"playing,omitempty"`
	Message string  `json:"message,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play a walkthrough in the terminal",
		Long: `Play a walkthrough, printing each step as it is revealed.

Each step waits for its delay divided by the speed, but never less than
200ms. With --interactive, nothing plays until you type a command:

  play, pause, next (n), prev (p), reset, speed <N>, status, quit (q)

Ctrl-C stops playback.

Examples:
  walkthrough play rag.yaml
  walkthrough play rag.cue --speed 2x
  walkthrough play rag.yaml --interactive
  walkthrough play rag.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Speed, "speed", "", "speed multiplier (0.5x, 1x, 2x, 4x; default from file)")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "control playback from stdin")

	return cmd
}

func runPlay(ctx context.Context, opts *PlayOptions, path string, cmd *cobra.Command) error {
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

	steps := walkthrough.Steps(def, nil)
	logger := opts.Logger().With("walkthrough", def.Name)

	p := &player{out: formatter, total: len(steps), done: make(chan struct{}, 1)}
	e, err := engine.New(steps,
		engine.WithSpeed(speed),
		engine.WithObserver(p.observer()),
		engine.WithLogger(logger),
	)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	defer e.Destroy()

	p.started(def, speed, engine.TotalDuration(steps, speed).String())
	logger.Info("playing walkthrough", "steps", len(steps), "speed", speed, "interactive", opts.Interactive)

	if opts.Interactive {
		return p.interactive(ctx, e, cmd.InOrStdin())
	}

	e.Play()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return p.interrupt(e)
	}
}

// player renders engine notifications. Observer callbacks run on timer
// goroutines; the formatter serializes output.
type player struct {
	out   *OutputFormatter
	total int
	done  chan struct{}
}

func (p *player) observer() engine.Observer {
	return engine.Observer{
		OnStepChange: func(step engine.Step, index int) {
			_ = p.out.Event(PlayEvent{
				Event:   PlayEventStepChanged,
				Index:   index,
				Total:   p.total,
				StepID:  step.ID,
				Payload: step.Payload,
			}, func() string {
				line := fmt.Sprintf("[%d/%d] %s", index+1, p.total, step.ID)
				if text := payloadText(step.Payload); text != "" {
					line += "  " + text
				}
				return line
			})
		},
		OnComplete: func() {
			_ = p.out.Event(PlayEvent{Event: PlayEventCompleted, Index: p.total - 1, Total: p.total}, func() string {
				return fmt.Sprintf("✓ complete (%d steps)", p.total)
			})
			select {
			case p.done <- struct{}{}:
			default:
			}
		},
		OnReset: func() {
			_ = p.out.Event(PlayEvent{Event: PlayEventReset, Index: -1, Total: p.total}, func() string {
				return "↺ reset"
			})
		},
	}
}

func (p *player) started(def *walkthrough.Definition, speed float64, total string) {
	_ = p.out.Event(PlayEvent{Event: PlayEventStarted, Name: def.Name, Index: -1, Total: p.total, Speed: speed}, func() string {
		line := "▶ " + def.Name
		if def.Description != "" {
			line += ": " + def.Description
		}
		return fmt.Sprintf("%s (%d steps at %s, %s)", line, p.total, engine.FormatSpeed(speed), total)
	})
}

func (p *player) status(e *engine.Engine) {
	s := e.Snapshot()
	ev := PlayEvent{Event: PlayEventStatus, Index: s.Index, Total: s.Total, Speed: s.Speed, Playing: s.Playing}
	if step, ok := s.Current(); ok {
		ev.StepID = step.ID
	}
	_ = p.out.Event(ev, func() string {
		state := "paused"
		switch {
		case s.Complete:
			state = "complete"
		case s.Playing:
			state = "playing"
		}
		return fmt.Sprintf("at %d/%d, %s, %s", s.Index+1, s.Total, state, engine.FormatSpeed(s.Speed))
	})
}

// interrupt destroys the engine and reports where playback stopped.
func (p *player) interrupt(e *engine.Engine) error {
	e.Destroy()
	index := e.CurrentIndex()
	_ = p.out.Event(PlayEvent{Event: PlayEventStopped, Index: index, Total: p.total}, func() string {
		return fmt.Sprintf("■ stopped at %d/%d", index+1, p.total)
	})
	return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%s: playback interrupted", ErrCodeInterrupted), Reported: true}
}

func (p *player) reportError(message string) {
	_ = p.out.Event(PlayEvent{Event: PlayEventError, Message: message}, func() string {
		return "! " + message
	})
}

// interactive runs commands read line by line from in until quit, EOF or
// cancellation.
func (p *player) interactive(ctx context.Context, e *engine.Engine, in io.Reader) error {
	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return p.interrupt(e)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := p.command(e, line); quit {
				return nil
			}
		}
	}
}

// command applies one interactive command and reports whether to quit.
func (p *player) command(e *engine.Engine, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch verb := strings.ToLower(fields[0]); verb {
	case "play":
		e.Play()
	case "pause":
		e.Pause()
	case "next", "n":
		e.NextStep()
	case "prev", "p":
		e.PrevStep()
		p.status(e)
	case "reset":
		e.Reset()
	case "status":
		p.status(e)
	case "speed":
		if len(fields) != 2 {
			p.reportError("usage: speed <multiplier>")
			return false
		}
		speed, err := engine.ParseSpeed(fields[1])
		if err == nil {
			err = e.SetSpeed(speed)
		}
		if err != nil {
			p.reportError(err.Error())
			return false
		}
		p.status(e)
	case "quit", "q", "exit":
		return true
	case "help":
		p.out.Printf("commands: play, pause, next (n), prev (p), reset, speed <N>, status, quit (q)\n")
	default:
		p.reportError(fmt.Sprintf("unknown command %q (try help)", verb))
	}
	return false
}

// payloadText renders a step payload on one line: the "text" field when
// present, otherwise compact JSON.
func payloadText(payload any) string {
	if payload == nil {
		return ""
	}
	if m, ok := payload.(map[string]any); ok {
		if text, ok := m["text"].(string); ok {
			return text
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	return string(data)
}
