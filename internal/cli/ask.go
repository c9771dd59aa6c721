package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vcscsvcscs/carepath/internal/questionnaire"
	"github.com/vcscsvcscs/carepath/internal/service"
	"github.com/vcscsvcscs/carepath/pkg/model"
)

var (
	// ErrInputClosed is returned when input ends before the last step
	ErrInputClosed = errors.New("input ended before the questionnaire was complete")
	// ErrAborted is returned when the user quits
	ErrAborted = errors.New("questionnaire aborted")
)

// NewAskCommand creates the 'carepath-cli ask' command
func NewAskCommand(s settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer the questionnaire and get a triage category",
		Long: `Walk through the questionnaire one step at a time.

Answer with option numbers (or values). Multi-select steps take a
comma-separated list. Press Enter to keep the current selection.
  b  go back one step
  r  start over
  q  quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := s.client()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := newWalkthrough(questionnaire.NewSession(questionnaire.DefaultEngine()), cmd.InOrStdin(), out)

			payload, err := w.run()
			if err != nil {
				return err
			}

			gray.Fprintf(out, "\nSubmitting...\n")
			result, err := client.Classify(cmd.Context(), payload)
			if err != nil {
				return fmt.Errorf("classify answers: %w", err)
			}

			printResult(out, service.Presenter{}.Result(result))
			return nil
		},
	}

	return cmd
}

// walkthrough drives a session from line-oriented input
type walkthrough struct {
	session *questionnaire.Session
	in      *bufio.Scanner
	out     io.Writer
}

func newWalkthrough(session *questionnaire.Session, in io.Reader, out io.Writer) *walkthrough {
	return &walkthrough{
		session: session,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

// run prompts until the last step is answered and returns the payload
func (w *walkthrough) run() (model.TriageRequest, error) {
	for {
		step := w.session.CurrentStep()
		w.printStep(step)

		if !w.in.Scan() {
			if err := w.in.Err(); err != nil {
				return model.TriageRequest{}, fmt.Errorf("read answer: %w", err)
			}
			return model.TriageRequest{}, ErrInputClosed
		}
		line := strings.TrimSpace(w.in.Text())

		switch strings.ToLower(line) {
		case "b", "back":
			if !w.session.Retreat() {
				gray.Fprintf(w.out, "Already at the first step\n")
			}
			continue
		case "r", "restart":
			w.session.Restart()
			gray.Fprintf(w.out, "Answers cleared\n")
			continue
		case "q", "quit":
			return model.TriageRequest{}, ErrAborted
		}

		if line != "" {
			values, err := parseSelection(line, step)
			if err == nil {
				err = w.apply(step, values)
			}
			if err != nil {
				red.Fprintf(w.out, "%v\n", err)
				continue
			}
		}

		if !w.session.CanAdvance() {
			red.Fprintf(w.out, "Please choose an option\n")
			continue
		}

		if w.session.Cursor().AtLast() {
			return w.session.Submission()
		}
		if _, err := w.session.Advance(); err != nil {
			red.Fprintf(w.out, "%v\n", err)
		}
	}
}

// apply makes values the selection of step
func (w *walkthrough) apply(step questionnaire.Step, values []string) error {
	if step.Cardinality == questionnaire.CardinalitySingle {
		if len(values) != 1 {
			return fmt.Errorf("choose exactly one option")
		}
		return w.session.Toggle(values[0], true)
	}

	for _, current := range w.session.Answers().Values(step.Key) {
		if !containsString(values, current) {
			if err := w.session.Toggle(current, false); err != nil {
				return err
			}
		}
	}
	for _, v := range values {
		if err := w.session.Toggle(v, true); err != nil {
			return err
		}
	}
	return nil
}

func (w *walkthrough) printStep(step questionnaire.Step) {
	cursor := w.session.Cursor()
	selected := w.session.Answers().Values(step.Key)

	cyan.Fprintf(w.out, "\nStep %d/%d: %s\n", cursor.Index()+1, cursor.Len(), step.Title)
	if step.Help != "" {
		gray.Fprintf(w.out, "%s\n", step.Help)
	}

	for i, o := range step.Options {
		if containsString(selected, o.Value) {
			green.Fprintf(w.out, "  %d) [x] %s\n", i+1, o.Label)
		} else {
			fmt.Fprintf(w.out, "  %d) [ ] %s\n", i+1, o.Label)
		}
	}

	switch step.Cardinality {
	case questionnaire.CardinalitySingle:
		fmt.Fprintf(w.out, "Choose one: ")
	default:
		fmt.Fprintf(w.out, "Choose any (comma separated), Enter to keep: ")
	}
}

// parseSelection reads option numbers or values from a comma or space
// separated list
func parseSelection(line string, step questionnaire.Step) ([]string, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' '
	})

	values := make([]string, 0, len(fields))
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			if n < 1 || n > len(step.Options) {
				return nil, fmt.Errorf("no option %d, choose 1-%d", n, len(step.Options))
			}
			f = step.Options[n-1].Value
		} else if !step.HasOption(f) {
			return nil, fmt.Errorf("unknown option %q", f)
		}
		if !containsString(values, f) {
			values = append(values, f)
		}
	}
	return values, nil
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
