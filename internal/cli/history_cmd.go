package cli

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// previewLength caps the content preview in history listings.
const previewLength = 48

func newHistoryCmd(app *App) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List generated content, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gens, total, err := app.Generations.List(cmd.Context(), app.owner(), limit, offset)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p := printer{styled: app.interactive()}
			if len(gens) == 0 {
				fmt.Fprintln(out, p.render(styleDim, "No generations yet. Start one with: draftwise chat"))
				return nil
			}

			rows := make([][]string, 0, len(gens))
			for _, g := range gens {
				rows = append(rows, []string{
					g.ID.String(),
					string(g.ContentType),
					g.CreatedAt.Format("2006-01-02 15:04"),
					preview(g.GeneratedContent),
				})
			}
			fmt.Fprint(out, p.table([]string{"ID", "TYPE", "CREATED", "PREVIEW"}, rows))
			if shown := offset + len(gens); shown < total {
				fmt.Fprintln(out, p.render(styleDim, fmt.Sprintf("showing %d-%d of %d", offset+1, shown, total)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of generations to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of generations to skip")

	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGenerationID(args[0])
			if err != nil {
				return err
			}
			gen, err := app.Generations.Get(cmd.Context(), app.owner(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), printer{styled: app.interactive()}.generation(gen))
			return nil
		},
	}
}

func newDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGenerationID(args[0])
			if err != nil {
				return err
			}
			gen, err := app.Generations.Get(cmd.Context(), app.owner(), id)
			if err != nil {
				return err
			}

			if !yes {
				if !app.interactive() {
					return errors.New("refusing to delete without --yes when not attached to a terminal")
				}
				confirmed := false
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Delete %s %s?", gen.ContentType.Label(), gen.ID)).
					Affirmative("Delete").
					Negative("Cancel").
					Value(&confirmed).
					WithTheme(draftwiseHuhTheme()).
					Run()
				if err != nil && !errors.Is(err, huh.ErrUserAborted) {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			if err := app.Generations.Delete(cmd.Context(), app.owner(), gen.ID); err != nil {
				return err
			}
			p := printer{styled: app.interactive()}
			fmt.Fprintln(cmd.OutOrStdout(), p.render(styleGreen, "Deleted "+gen.ID.String()))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}

func parseGenerationID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid generation id %q", s)
	}
	return id, nil
}

// preview returns the first line of content, truncated.
func preview(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if utf8.RuneCountInString(line) <= previewLength {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:previewLength-3])) + "..."
}
