package cmd

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nexora/internal/flow"
	"github.com/felixgeelhaar/nexora/internal/projects"
	"github.com/felixgeelhaar/nexora/internal/tui"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

// exitCommand ends a plain answer session. Text after it is submitted first.
const exitCommand = ":exit"

var answerCmd = &cobra.Command{
	Use:   "answer <project-id>",
	Short: "Answer a project's questions",
	Long: `Walk through a project's questions one at a time. Template questions come
first; AI follow-ups may appear after them. Every answer is saved when it is
submitted, so the session can be resumed later.

In plain mode each line is one answer:

  <text>          submit the answer and show the next question
  :exit <text>    submit the answer and stop
  :exit           stop without answering the current question

--tui opens a full-screen editor with multi-line answers instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnswer,
}

var answerTUI bool

func init() {
	answerCmd.Flags().BoolVar(&answerTUI, "tui", false, "use the full-screen editor")
	rootCmd.AddCommand(answerCmd)
}

// answerSummary is the json and yaml result of an answer session.
type answerSummary struct {
	ProjectID int    `json:"project_id" yaml:"project_id"`
	State     string `json:"state" yaml:"state"`
	Answered  int    `json:"answered" yaml:"answered"`
}

func runAnswer(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project")
	if err != nil {
		return err
	}
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	if _, err := cc.Session.RequireUser(cmd.Context()); err != nil {
		return err
	}

	ctrl := flow.New(id, cc.Projects, flow.WithMetrics(cc.Metrics), flow.WithLogger(cc.Logger))

	var snap flow.Snapshot
	if answerTUI {
		snap, err = tui.RunFlow(cmd.Context(), ctrl)
	} else {
		snap, err = runPlainFlow(cmd.Context(), cc, ctrl)
	}
	if err != nil {
		return err
	}

	if !cc.Text() {
		return cc.Print(answerSummary{ProjectID: id, State: snap.State.String(), Answered: snap.Answered})
	}
	return nil
}

// runPlainFlow drives ctrl from line input. It returns the final snapshot;
// an error is returned only when the flow cannot continue.
func runPlainFlow(ctx context.Context, cc *CommandContext, ctrl *flow.Controller) (flow.Snapshot, error) {
	styles := ux.DefaultStyles()
	in := bufio.NewScanner(cc.In)
	in.Buffer(make([]byte, 0, 64*1024), 1<<20)
	w := cc.Out

	snap, err := ctrl.Start(ctx)
	if err != nil {
		return snap, err
	}

	shown := 0
	for !snap.State.Terminal() {
		if snap.Question != nil && snap.Question.ID != shown {
			printQuestion(w, styles, snap)
			shown = snap.Question.ID
		}
		fmt.Fprint(w, "> ")

		if !in.Scan() {
			if err := in.Err(); err != nil {
				return snap, fmt.Errorf("failed to read answer: %w", err)
			}
			fmt.Fprintln(w)
			return savedForLater(w, styles, ctrl), nil
		}
		line := in.Text()

		exit := false
		if trimmed := strings.TrimSpace(line); trimmed == exitCommand || strings.HasPrefix(trimmed, exitCommand+" ") {
			exit = true
			line = strings.TrimSpace(strings.TrimPrefix(trimmed, exitCommand))
			if line == "" {
				return savedForLater(w, styles, ctrl), nil
			}
		}

		ctrl.SetDraft(line)
		if exit {
			snap, err = ctrl.SaveAndExit(ctx, line)
		} else {
			snap, err = ctrl.Submit(ctx, line)
		}
		if err == nil {
			continue
		}

		if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
			return snap, err
		}
		// The question stays answerable; the next line retries it.
		fmt.Fprintln(w, styles.Error.Render("✗ "+flow.Message(err)))
	}

	if snap.State == flow.Exited {
		fmt.Fprintln(w, styles.Success.Render("✓ Progress saved."))
		fmt.Fprintf(w, "Continue later with 'nexora answer %d'\n", ctrl.ProjectID())
	} else {
		fmt.Fprintln(w, styles.Success.Render("✓ All questions answered!"))
		fmt.Fprintf(w, "Read the report with 'nexora report show %d'\n", ctrl.ProjectID())
	}
	return snap, nil
}

func printQuestion(w io.Writer, styles ux.Styles, snap flow.Snapshot) {
	q := snap.Question
	fmt.Fprintln(w)
	header := styles.OriginBadge(q.IsAI())
	if snap.Answered > 0 {
		header += " " + styles.Muted.Render(fmt.Sprintf("%d answered", snap.Answered))
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, styles.Title.Render(q.Text))
	if d := strings.TrimSpace(q.Description); d != "" {
		fmt.Fprintln(w, styles.Subtitle.Render(d))
	}
}

func savedForLater(w io.Writer, styles ux.Styles, ctrl *flow.Controller) flow.Snapshot {
	snap := ctrl.Snapshot()
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("Stopped. Answered questions are saved; continue with 'nexora answer %d'", ctrl.ProjectID())))
	return snap
}

var _ flow.Backend = (*projects.Service)(nil)
