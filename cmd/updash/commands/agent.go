package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/updash/internal/app/agentbuild"
	"github.com/slok/updash/internal/model"
)

type AgentDownloadCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	cfg       model.AgentBuildConfig
	outPath   string
	outDir    string
	noProgess bool
	format    string
}

// NewAgentDownloadCommand returns the agent download command.
func NewAgentDownloadCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *AgentDownloadCommand {
	c := &AgentDownloadCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("download", "Generate an agent binary on the dashboard and download it.")
	c.Cmd.Flag("api-endpoint-1", "Primary API endpoint the agent reports to.").StringVar(&c.cfg.APIEndpoint1)
	c.Cmd.Flag("api-endpoint-2", "Fallback API endpoint the agent reports to.").StringVar(&c.cfg.APIEndpoint2)
	c.Cmd.Flag("agent-api-key", "API key baked into the agent.").StringVar(&c.cfg.APIKey)
	c.Cmd.Flag("loop-interval", "Agent loop interval in seconds.").IntVar(&c.cfg.LoopInterval)
	c.Cmd.Flag("report-interval", "Agent full report interval in seconds.").IntVar(&c.cfg.ReportInterval)
	c.Cmd.Flag("winget-path", "Winget path on the machines.").StringVar(&c.cfg.WingetPath)
	c.Cmd.Flag("out", "Output file, the dashboard filename is used when missing.").Short('o').StringVar(&c.outPath)
	c.Cmd.Flag("out-dir", "Output directory when no output file is set.").Default(".").StringVar(&c.outDir)
	c.Cmd.Flag("no-progress", "Don't show the download progress.").BoolVar(&c.noProgess)
	addFormatFlag(c.Cmd, &c.format)

	return c
}

func (c AgentDownloadCommand) Name() string { return c.Cmd.FullCommand() }

func (c AgentDownloadCommand) Run(ctx context.Context) error {
	cfg := c.buildConfig()

	client, err := c.rootCmd.newClient()
	if err != nil {
		return err
	}

	svcCfg := agentbuild.ServiceConfig{
		Client: client,
		Logger: c.rootCmd.Logger,
	}
	if !c.noProgess {
		svcCfg.StatusWriter = c.rootCmd.Stderr
	}
	svc, err := agentbuild.NewService(svcCfg)
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	resp, err := svc.Run(ctx, agentbuild.Request{
		Config:     cfg,
		OutputPath: c.outPath,
		OutputDir:  c.outDir,
	})
	if err != nil {
		return fmt.Errorf("could not download agent: %w", err)
	}

	if err := c.rootCmd.printer(c.format).PrintAgent(resp.Path, resp.SizeBytes); err != nil {
		return fmt.Errorf("could not print agent: %w", err)
	}

	return nil
}

// buildConfig completes the flags with the profile agent settings.
func (c AgentDownloadCommand) buildConfig() model.AgentBuildConfig {
	cfg := c.cfg
	p := c.rootCmd.Profile.Agent
	if p == nil {
		return cfg
	}

	if cfg.APIEndpoint1 == "" {
		cfg.APIEndpoint1 = p.APIEndpoint1
	}
	if cfg.APIEndpoint2 == "" {
		cfg.APIEndpoint2 = p.APIEndpoint2
	}
	if cfg.APIKey == "" {
		cfg.APIKey = p.APIKey
	}
	if cfg.LoopInterval == 0 {
		cfg.LoopInterval = p.LoopInterval
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = p.ReportInterval
	}
	if cfg.WingetPath == "" {
		cfg.WingetPath = p.WingetPath
	}

	return cfg
}
