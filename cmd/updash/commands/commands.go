package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/updash/internal/app/dispatch"
	"github.com/slok/updash/internal/app/theme"
	"github.com/slok/updash/internal/conventions"
	"github.com/slok/updash/internal/dashboard/api"
	"github.com/slok/updash/internal/log"
	"github.com/slok/updash/internal/model"
	"github.com/slok/updash/internal/poller"
	"github.com/slok/updash/internal/printer"
	storageio "github.com/slok/updash/internal/storage/io"
	"github.com/slok/updash/internal/storage/sqlite"
	"github.com/slok/updash/internal/ui"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string
	ConfigPath string

	// Dashboard flags, unset values are taken from the profile.
	URL             string
	APIKey          string
	Yes             bool
	NoWait          bool
	PollInterval    time.Duration
	PollMaxAttempts int
	Timeout         time.Duration

	// Profile is the loaded operator profile.
	Profile model.Profile

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger and notification colors.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	dataDir := conventions.DataDir()
	app.Flag("db-path", "Path to the SQLite database file.").Default(conventions.DBPath(dataDir)).StringVar(&c.DBPath)
	app.Flag("config", "Path to the YAML profile.").Default(conventions.ProfilePath(dataDir)).StringVar(&c.ConfigPath)

	app.Flag("url", "Dashboard URL.").StringVar(&c.URL)
	app.Flag("api-key", "Dashboard API key.").StringVar(&c.APIKey)
	app.Flag("yes", "Confirm destructive actions without asking.").Short('y').BoolVar(&c.Yes)
	app.Flag("no-wait", "Don't follow the action after the dashboard accepts it.").BoolVar(&c.NoWait)
	app.Flag("poll-interval", "Time between task status requests.").DurationVar(&c.PollInterval)
	app.Flag("poll-max-attempts", "Task status requests before giving up.").IntVar(&c.PollMaxAttempts)
	app.Flag("timeout", "Dashboard request timeout.").DurationVar(&c.Timeout)

	return c
}

// LoadProfile loads the YAML profile and uses it for the settings not set by flags.
// A missing profile on the default location is not an error.
func (c *RootCommand) LoadProfile(ctx context.Context) error {
	repo := storageio.NewProfileYAMLRepository(os.DirFS(filepath.Dir(c.ConfigPath)))
	p, err := repo.GetProfile(ctx, filepath.Base(c.ConfigPath))
	if err != nil {
		isDefault := c.ConfigPath == conventions.ProfilePath(conventions.DataDir())
		if isDefault && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not load profile %s: %w", c.ConfigPath, err)
	}

	c.Profile = p
	c.applyProfile()

	return nil
}

func (c *RootCommand) applyProfile() {
	if c.URL == "" {
		c.URL = c.Profile.URL
	}
	if c.APIKey == "" {
		c.APIKey = c.Profile.APIKey
	}
	if c.PollInterval == 0 {
		c.PollInterval = c.Profile.PollInterval
	}
	if c.PollMaxAttempts == 0 {
		c.PollMaxAttempts = c.Profile.PollMaxAttempts
	}
	if c.Timeout == 0 {
		c.Timeout = c.Profile.Timeout
	}
}

func (c *RootCommand) newClient() (*api.Client, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("dashboard url is required, use --url, UPDASH_URL or the profile: %w", model.ErrNotValid)
	}

	client, err := api.NewClient(api.ClientConfig{
		BaseURL: c.URL,
		APIKey:  c.APIKey,
		Timeout: c.Timeout,
		Logger:  c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create dashboard client: %w", err)
	}

	return client, nil
}

func (c *RootCommand) newRepository(ctx context.Context) (*sqlite.Repository, error) {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.DBPath,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	return repo, nil
}

func (c *RootCommand) newThemeService(repo *sqlite.Repository) (*theme.Service, error) {
	svc, err := theme.NewService(theme.ServiceConfig{
		Repository: repo,
		Default:    c.Profile.Theme,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create theme service: %w", err)
	}

	return svc, nil
}

// theme returns the stored theme, the profile one or the default, in that order.
func (c *RootCommand) theme(ctx context.Context, repo *sqlite.Repository) model.Theme {
	svc, err := c.newThemeService(repo)
	if err != nil {
		c.Logger.Warningf("%s", err)
		return model.DefaultTheme
	}

	t, err := svc.Get(ctx)
	if err != nil {
		c.Logger.Warningf("Could not get stored theme: %s", err)
		return model.DefaultTheme
	}

	return t
}

func (c *RootCommand) newNotifier(ctx context.Context, repo *sqlite.Repository) ui.Notifier {
	return ui.NewStreamNotifier(ui.StreamNotifierConfig{
		Out:     c.Stderr,
		Theme:   c.theme(ctx, repo),
		NoColor: c.NoColor,
	})
}

func (c *RootCommand) newConfirmer() ui.Confirmer {
	if c.Yes {
		return ui.AutoConfirmer(true)
	}
	return ui.NewPromptConfirmer(c.Stdin, c.Stderr)
}

func (c *RootCommand) newPoller(client *api.Client) (*poller.Poller, error) {
	p, err := poller.NewPoller(poller.Config{
		Client:      client,
		Interval:    c.PollInterval,
		MaxAttempts: c.PollMaxAttempts,
		Logger:      c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create poller: %w", err)
	}

	return p, nil
}

func (c *RootCommand) newDispatcher(ctx context.Context, client *api.Client, repo *sqlite.Repository) (*dispatch.Service, error) {
	p, err := c.newPoller(client)
	if err != nil {
		return nil, err
	}

	svc, err := dispatch.NewService(dispatch.ServiceConfig{
		Client:     client,
		Repository: repo,
		Confirmer:  c.newConfirmer(),
		Notifier:   c.newNotifier(ctx, repo),
		Poller:     p,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create dispatcher: %w", err)
	}

	return svc, nil
}

func (c *RootCommand) printer(format string) printer.Printer {
	if format == formatJSON {
		return printer.NewJSONPrinter(c.Stdout)
	}
	return printer.NewTablePrinter(c.Stdout)
}

func addFormatFlag(cmd *kingpin.CmdClause, format *string) {
	cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(format, formatTable, formatJSON)
}
