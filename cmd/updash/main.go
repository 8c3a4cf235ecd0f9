package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/updash/cmd/updash/commands"
	"github.com/slok/updash/internal/log"
	loglogrus "github.com/slok/updash/internal/log/logrus"
	"github.com/slok/updash/internal/model"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("updash", "Update management dashboard controller.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	refreshCmd := commands.NewActionCommand(rootCmd, app, model.ActionRefresh, "Ask machines for a fresh report.")
	updateCmd := commands.NewActionCommand(rootCmd, app, model.ActionUpdate, "Update an application on a machine.")
	uninstallCmd := commands.NewActionCommand(rootCmd, app, model.ActionUninstall, "Uninstall an application from a machine.")
	updateOSCmd := commands.NewActionCommand(rootCmd, app, model.ActionUpdateOS, "Update the operating system of machines.")
	updateAllCmd := commands.NewActionCommand(rootCmd, app, model.ActionUpdateAll, "Update every application of machines.")
	refreshAllCmd := commands.NewActionCommand(rootCmd, app, model.ActionRefreshAll, "Ask every machine for a fresh report.")
	deployAgentCmd := commands.NewActionCommand(rootCmd, app, model.ActionDeployAgent, "Deploy the latest agent to every machine.")
	deleteCmd := commands.NewActionCommand(rootCmd, app, model.ActionDelete, "Remove machines from the dashboard.")
	historyCmd := commands.NewHistoryCommand(rootCmd, app)
	doctorCmd := commands.NewDoctorCommand(rootCmd, app)

	blacklistCmd := app.Command("blacklist", "Manage machine package blacklists.")
	blacklistSetCmd := commands.NewBlacklistSetCommand(rootCmd, blacklistCmd)

	taskCmd := app.Command("task", "Inspect dashboard tasks.")
	taskStatusCmd := commands.NewTaskStatusCommand(rootCmd, taskCmd)
	taskWaitCmd := commands.NewTaskWaitCommand(rootCmd, taskCmd)

	agentCmd := app.Command("agent", "Manage agent binaries.")
	agentDownloadCmd := commands.NewAgentDownloadCommand(rootCmd, agentCmd)

	themeCmd := app.Command("theme", "Manage the display theme.")

	cmds := map[string]commands.Command{
		refreshCmd.Name():       refreshCmd,
		updateCmd.Name():        updateCmd,
		uninstallCmd.Name():     uninstallCmd,
		updateOSCmd.Name():      updateOSCmd,
		updateAllCmd.Name():     updateAllCmd,
		refreshAllCmd.Name():    refreshAllCmd,
		deployAgentCmd.Name():   deployAgentCmd,
		deleteCmd.Name():        deleteCmd,
		historyCmd.Name():       historyCmd,
		doctorCmd.Name():        doctorCmd,
		blacklistSetCmd.Name():  blacklistSetCmd,
		taskStatusCmd.Name():    taskStatusCmd,
		taskWaitCmd.Name():      taskWaitCmd,
		agentDownloadCmd.Name(): agentDownloadCmd,
	}
	for _, c := range commands.NewThemeCommands(rootCmd, themeCmd) {
		cmds[c.Name()] = c
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Auto-suppress logging for commands that produce structured output (table/JSON)
	// to prevent log noise from mixing with printer output in the terminal.
	// Users can still enable logging with --debug.
	printerCommands := map[string]bool{
		"history":      true,
		"doctor":       true,
		"task status":  true,
		"theme get":    true,
		"theme set":    true,
		"theme toggle": true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(ctx, *rootCmd)

	if err := rootCmd.LoadProfile(ctx); err != nil {
		return err
	}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(ctx context.Context, config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
