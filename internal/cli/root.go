// Package cli implements the draftwise terminal client: a chat wizard, a
// flat form and a browser for locally stored generations.
package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jkindrix/draftwise/internal/domain"
	"github.com/jkindrix/draftwise/internal/realtime"
	"github.com/jkindrix/draftwise/internal/service"
)

// Wizard runs chat sessions. *service.WizardService satisfies it.
type Wizard interface {
	Start(ctx context.Context, contentType domain.ContentType, owner string) (*service.SessionView, error)
	Submit(ctx context.Context, owner, id, text string) (*service.SessionView, error)
	Edit(ctx context.Context, owner, id, key string) (*service.SessionView, error)
	Finalize(ctx context.Context, owner, id string, opts service.FinalizeOptions) (*service.SessionView, error)
	Abandon(ctx context.Context, owner, id string) error
	Subscribe(ctx context.Context, owner, id string) (<-chan realtime.Event, func(), error)
}

// Generations stores and produces content. *service.GenerationService
// satisfies it.
type Generations interface {
	Generate(ctx context.Context, in service.GenerateInput) (*domain.Generation, error)
	Get(ctx context.Context, owner string, id uuid.UUID) (*domain.Generation, error)
	List(ctx context.Context, owner string, limit, offset int) ([]*domain.Generation, int, error)
	Delete(ctx context.Context, owner string, id uuid.UUID) error
}

// Schedules resolves question schedules. *schedule.Registry satisfies it.
type Schedules interface {
	Get(ct domain.ContentType) (*domain.Schedule, error)
	Types() []domain.ContentType
}

// App holds the services used by CLI commands.
type App struct {
	Wizard      Wizard
	Generations Generations
	Schedules   Schedules

	// Owner is the identity generations are stored under.
	Owner string

	// IsInteractive reports whether stdin is a terminal. Nil means false.
	IsInteractive func() bool
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) owner() string {
	if a.Owner == "" {
		return domain.AnonymousOwner
	}
	return a.Owner
}

// NewRootCmd creates the top-level "draftwise" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "draftwise",
		Short:         "Conversational writing assistant for bios, project summaries and reflections",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newChatCmd(app),
		newFormCmd(app),
		newHistoryCmd(app),
		newShowCmd(app),
		newDeleteCmd(app),
	)

	return root
}
