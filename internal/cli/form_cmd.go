package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jkindrix/draftwise/internal/domain"
	"github.com/jkindrix/draftwise/internal/service"
	"github.com/jkindrix/draftwise/internal/validation"
)

func newFormCmd(app *App) *cobra.Command {
	var (
		contentType string
		tone        string
		words       int
		answers     []string
	)

	cmd := &cobra.Command{
		Use:   "form",
		Short: "Fill in every question at once and generate content",
		Long: `Answer all questions for a content type in a single form. Without a
terminal, answers are read from repeated --answer key=value flags.`,
		Example: `  draftwise form --type project
  draftwise form --type bio --answer name="Ada Lovelace" --answer skills=Go ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := domain.ParseContentType(contentType)
			if err != nil {
				return err
			}
			sched, err := app.Schedules.Get(ct)
			if err != nil {
				return err
			}

			set, err := parseAnswerFlags(answers)
			if err != nil {
				return err
			}
			in := service.GenerateInput{
				Owner:       app.owner(),
				ContentType: ct,
				Tone:        domain.Tone(tone),
				WordLimit:   words,
				Answers:     set,
				Mode:        service.ModeForm,
			}

			if app.interactive() {
				if err := runAnswerForm(sched, &in); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return err
				}
			}

			gen, err := app.Generations.Generate(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("generating %s: %w", ct.Label(), err)
			}
			fmt.Fprint(cmd.OutOrStdout(), printer{styled: app.interactive()}.generation(gen))
			return nil
		},
	}

	cmd.Flags().StringVarP(&contentType, "type", "t", string(domain.ContentTypeBio), "content type (bio, project, reflection)")
	cmd.Flags().StringVar(&tone, "tone", "", "narrative voice (first-person, third-person)")
	cmd.Flags().IntVar(&words, "words", 0, "target word count")
	cmd.Flags().StringArrayVarP(&answers, "answer", "a", nil, "answer as key=value (repeatable)")

	return cmd
}

// parseAnswerFlags splits key=value pairs on the first '='. Values may
// contain commas and further '=' signs.
func parseAnswerFlags(pairs []string) (domain.AnswerSet, error) {
	set := make(domain.AnswerSet, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --answer %q, want key=value", pair)
		}
		set[key] = strings.TrimSpace(value)
	}
	return set, nil
}

// runAnswerForm collects one answer per schedule question plus the
// generation knobs. Values already in in are used as defaults.
func runAnswerForm(sched *domain.Schedule, in *service.GenerateInput) error {
	check := validation.NewAnswerValidator(0)
	validate := func(s string) error {
		if res := check.Check(s); !res.Accepted {
			return errors.New(res.Reason)
		}
		return nil
	}
	values := make([]string, sched.Len())

	fields := make([]huh.Field, 0, sched.Len())
	for i, q := range sched.Questions {
		values[i] = in.Answers[q.Key]
		title := q.Label
		if title == "" {
			title = q.Key
		}
		if q.Key == sched.NameKey {
			fields = append(fields, huh.NewInput().
				Title(title).
				Description(q.Prompt).
				Placeholder(q.Placeholder).
				Value(&values[i]).
				Validate(validate))
			continue
		}
		fields = append(fields, huh.NewText().
			Title(title).
			Description(q.Prompt).
			Placeholder(q.Placeholder).
			Value(&values[i]).
			Validate(validate))
	}

	tone := in.Tone
	if tone == "" {
		tone = domain.ToneFirstPerson
	}
	words := strconv.Itoa(in.WordLimit)
	if in.WordLimit == 0 {
		words = strconv.Itoa(domain.DefaultWordLimit)
	}

	form := huh.NewForm(
		huh.NewGroup(fields...).Title(sched.Title),
		huh.NewGroup(
			huh.NewSelect[domain.Tone]().
				Title("Tone").
				Options(
					huh.NewOption("First person", domain.ToneFirstPerson),
					huh.NewOption("Third person", domain.ToneThirdPerson),
				).
				Value(&tone),
			huh.NewInput().
				Title("Word limit").
				Value(&words).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < domain.MinWordLimit || n > domain.MaxWordLimit {
						return fmt.Errorf("enter a number between %d and %d", domain.MinWordLimit, domain.MaxWordLimit)
					}
					return nil
				}),
		),
	).WithTheme(draftwiseHuhTheme()).WithShowHelp(false)

	if err := form.Run(); err != nil {
		return err
	}

	for i, q := range sched.Questions {
		in.Answers[q.Key] = values[i]
	}
	in.Tone = tone
	in.WordLimit, _ = strconv.Atoi(words)
	return nil
}
