package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
	"github.com/jkindrix/draftwise/internal/service"
)

func newChatCmd(app *App) *cobra.Command {
	var (
		contentType string
		tone        string
		words       int
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Answer questions one at a time and generate content",
		Long: `Start a chat session for a content type. Answer each question, then
review the summary and type /done to generate, or /edit <key> to revise
an answer. /quit discards the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := domain.ParseContentType(contentType)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			view, err := app.Wizard.Start(ctx, ct, app.owner())
			if err != nil {
				return fmt.Errorf("starting session: %w", err)
			}
			opts := service.FinalizeOptions{Tone: domain.Tone(tone), WordLimit: words}

			if !app.interactive() {
				return runPlainChat(ctx, app, view, opts, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			return runChatTUI(ctx, app, view, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&contentType, "type", "t", string(domain.ContentTypeBio), "content type (bio, project, reflection)")
	cmd.Flags().StringVar(&tone, "tone", "", "narrative voice (first-person, third-person)")
	cmd.Flags().IntVar(&words, "words", 0, "target word count")

	return cmd
}

// chatAction is what one line of chat input asks for.
type chatAction int

const (
	actionSubmit chatAction = iota
	actionEdit
	actionFinalize
	actionQuit
)

type chatCommand struct {
	action chatAction
	arg    string
}

var (
	errNotConfirming = errors.New("commands are available once every question is answered")
	errUseCommands   = errors.New("type /done to generate or /edit <key> to revise an answer")
	errSessionDone   = errors.New("this session is complete")
)

// parseChatInput maps a trimmed, non-empty line to an action given the
// session mode.
func parseChatInput(mode conversation.Mode, input string) (chatCommand, error) {
	if strings.HasPrefix(input, "/") {
		fields := strings.Fields(input)
		switch strings.ToLower(fields[0]) {
		case "/quit", "/exit", "/q":
			return chatCommand{action: actionQuit}, nil
		case "/done":
			if mode != conversation.ModeConfirming {
				return chatCommand{}, errNotConfirming
			}
			return chatCommand{action: actionFinalize}, nil
		case "/edit":
			if mode != conversation.ModeConfirming {
				return chatCommand{}, errNotConfirming
			}
			if len(fields) != 2 {
				return chatCommand{}, errors.New("usage: /edit <key>")
			}
			return chatCommand{action: actionEdit, arg: fields[1]}, nil
		default:
			return chatCommand{}, fmt.Errorf("unknown command %s", fields[0])
		}
	}

	switch mode {
	case conversation.ModeConfirming:
		return chatCommand{}, errUseCommands
	case conversation.ModeComplete:
		return chatCommand{}, errSessionDone
	}
	return chatCommand{action: actionSubmit, arg: input}, nil
}

// runTurn sends one parsed command to the wizard.
func runTurn(ctx context.Context, app *App, id string, c chatCommand, opts service.FinalizeOptions) (*service.SessionView, error) {
	switch c.action {
	case actionEdit:
		return app.Wizard.Edit(ctx, app.owner(), id, c.arg)
	case actionFinalize:
		return app.Wizard.Finalize(ctx, app.owner(), id, opts)
	default:
		return app.Wizard.Submit(ctx, app.owner(), id, c.arg)
	}
}

// editKeys returns the field keys offered for revision.
func editKeys(view *service.SessionView) []string {
	var keys []string
	for _, a := range view.Affordances {
		if a.Action == conversation.ActionEdit {
			keys = append(keys, a.Key)
		}
	}
	return keys
}

// runPlainChat drives a session line by line, printing only committed
// transcript entries.
func runPlainChat(ctx context.Context, app *App, view *service.SessionView, opts service.FinalizeOptions, in io.Reader, out io.Writer) error {
	p := printer{}
	last := writeEntries(out, p, view.Transcript, 0)
	if view.Mode == conversation.ModeConfirming {
		fmt.Fprintln(out, p.affordanceHint(editKeys(view)))
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		c, err := parseChatInput(view.Mode, input)
		if err != nil {
			fmt.Fprintln(out, p.errorLine(err))
			continue
		}
		if c.action == actionQuit {
			break
		}

		next, err := runTurn(ctx, app, view.ID, c, opts)
		if err != nil {
			fmt.Fprintln(out, p.errorLine(err))
			continue
		}
		view = next
		last = writeEntries(out, p, view.Transcript, last)

		if view.Generation != nil {
			fmt.Fprintln(out)
			fmt.Fprint(out, p.generation(view.Generation))
			return nil
		}
		if view.Mode == conversation.ModeConfirming {
			fmt.Fprintln(out, p.affordanceHint(editKeys(view)))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return discard(ctx, app, view.ID, out, p)
}

// runChatTUI runs the interactive chat until the user quits or content is
// generated.
func runChatTUI(ctx context.Context, app *App, view *service.SessionView, opts service.FinalizeOptions, out io.Writer) error {
	// Live updates are optional; turn results carry the full transcript.
	events, cancel, err := app.Wizard.Subscribe(ctx, app.owner(), view.ID)
	if err != nil {
		events, cancel = nil, func() {}
	}
	defer cancel()

	final, err := tea.NewProgram(newChatModel(ctx, app, view, events, opts), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("running chat: %w", err)
	}

	p := printer{styled: true}
	if m, ok := final.(*chatModel); ok && m.generation != nil {
		fmt.Fprint(out, p.generation(m.generation))
		return nil
	}
	return discard(ctx, app, view.ID, out, p)
}

func discard(ctx context.Context, app *App, id string, out io.Writer, p printer) error {
	if err := app.Wizard.Abandon(ctx, app.owner(), id); err != nil {
		return fmt.Errorf("discarding session: %w", err)
	}
	fmt.Fprintln(out, p.render(styleDim, "Session discarded."))
	return nil
}

// writeEntries prints entries newer than after and returns the highest ID
// written.
func writeEntries(out io.Writer, p printer, entries []domain.TranscriptEntry, after int) int {
	last := after
	for _, e := range entries {
		if e.ID <= after {
			continue
		}
		fmt.Fprintln(out, p.entry(e))
		if e.ID > last {
			last = e.ID
		}
	}
	return last
}
