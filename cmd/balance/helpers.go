package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/api"
	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/credentials"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/query"
	"github.com/Veraticus/the-books-must-balance/internal/reconcile"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// app is the wiring shared by every command that talks to the API.
type app struct {
	cfg      *config.Config
	store    *credentials.SQLiteStore
	client   *api.Client
	cache    *query.Cache
	prompter *cli.Prompter
	notifier *trackingNotifier
}

// trackingNotifier remembers whether a failure was already shown, so the
// command does not print it a second time.
type trackingNotifier struct {
	service.Notifier
	failed bool
}

func (n *trackingNotifier) Error(message string) {
	n.failed = true
	n.Notifier.Error(message)
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	store, err := credentials.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	client, err := api.NewClient(api.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	// Commands without a --yes flag always ask.
	yes, _ := cmd.Flags().GetBool("yes")

	prompter := cli.NewPrompter(os.Stdin, cmd.OutOrStdout(), cli.WithAssumeYes(yes))
	return &app{
		cfg:      cfg,
		store:    store,
		client:   client,
		cache:    query.NewCache(cfg.CacheTTL),
		prompter: prompter,
		notifier: &trackingNotifier{Notifier: prompter},
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		common.LogWarn("Failed to close credential store", common.Fields{"error": err})
	}
}

// businessID resolves the business to act on: the configured id, else the
// signed-in user's business.
func (a *app) businessID(ctx context.Context) (string, error) {
	if a.cfg.BusinessID != "" {
		return a.cfg.BusinessID, nil
	}
	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to look up your business: %w", err)
	}
	business := model.IDValue(user.BusinessID)
	if business == "" {
		return "", common.NewUserError("Your account is not linked to a business. Pass --business or set api.business_id.", common.ErrMissingConfig)
	}
	return business, nil
}

// reconciler builds the read and write sides for the resolved business.
func (a *app) reconciler(ctx context.Context) (*reconcile.Fetcher, *reconcile.Dispatcher, error) {
	businessID, err := a.businessID(ctx)
	if err != nil {
		return nil, nil, err
	}
	fetcher := reconcile.NewFetcher(a.client, a.cache, businessID, a.cfg.PageSize)
	dispatcher := reconcile.NewDispatcher(a.client, a.cache, a.prompter, a.notifier, reconcile.DispatcherConfig{
		BusinessID:    businessID,
		MinConfidence: a.cfg.MinConfidence,
	})
	return fetcher, dispatcher, nil
}

// reported turns a dispatcher result into the command's error, marking it
// when the notifier already showed it.
func (a *app) reported(_ reconcile.Outcome, err error) error {
	if err == nil {
		return nil
	}
	if a.notifier.failed {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return err
}

func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}

func printOut(cmd *cobra.Command, s string) {
	fmt.Fprintln(cmd.OutOrStdout(), s)
}
