package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gooddata/gdc/pkg/api"
	"github.com/gooddata/gdc/pkg/catalog"
	"github.com/gooddata/gdc/pkg/declarative"
	"github.com/gooddata/gdc/pkg/gdcli"
	"github.com/gooddata/gdc/pkg/profile"
)

var version = "dev"

// globalOptions are the flags shared by every command.
type globalOptions struct {
	dir       string
	profile   string
	gdBinary  string
	output    string
	verbose   bool
	stdout    io.Writer
	stderr    io.Writer
	logger    *slog.Logger
	outFormat outputFormat
}

// runOptions are the flags of clone and deploy.
type runOptions struct {
	workspace         string
	patch             bool
	dataSources       []string
	columnsCase       string
	dataSourceMapping map[string]string
	commit            string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalOptions{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "gdc",
		Short: "Clone and deploy an analytics organization as code",
		Long: `gdc keeps the declarative state of an analytics organization in a
directory of YAML files.

Run it in a directory containing gooddata.yaml to clone or deploy the whole
organization, or inside analytics/<subtree> (data_sources, user_groups, users,
workspaces_data_filters, workspaces) to work on that subtree only.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(g.output)
			if err != nil {
				return err
			}
			g.outFormat = format

			level := slog.LevelInfo
			if g.verbose {
				level = slog.LevelDebug
			}
			g.logger = slog.New(slog.NewTextHandler(g.stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&g.dir, "dir", "C", ".", "Organization root or analytics subtree to work in")
	rootCmd.PersistentFlags().StringVar(&g.profile, "profile", "", "Profile from gooddata.yaml (default: default_profile)")
	rootCmd.PersistentFlags().StringVar(&g.gdBinary, "gd-binary", gdcli.DefaultBinary, "Path to the gd binary used for workspaces")
	rootCmd.PersistentFlags().StringVarP(&g.output, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&g.verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(newDeployCmd(g))
	rootCmd.AddCommand(newCloneCmd(g))

	return rootCmd
}

// addRunFlags registers the flags shared by clone and deploy.
func addRunFlags(fs *pflag.FlagSet, o *runOptions) {
	fs.StringVar(&o.workspace, "workspace", "", "Only process this workspace")
	fs.BoolVar(&o.patch, "patch", false, "Replace only the selected workspace on the server (deploy only)")
	fs.StringArrayVar(&o.dataSources, "data-source", nil, "Only deploy this data source (repeatable)")
	fs.StringVar(&o.columnsCase, "columns-case", "", "Fold table and column names of deployed models: lower, upper")
	fs.StringToStringVar(&o.dataSourceMapping, "data-source-mapping", nil, "Remap data source ids of deployed models: old=new (repeatable)")
}

// settings validates the flags for action. It runs before any file or
// network access.
func (o *runOptions) settings(action declarative.Action) (declarative.Settings, error) {
	mode, err := catalog.ParseCaseMode(o.columnsCase)
	if err != nil {
		return declarative.Settings{}, fmt.Errorf("%w: %v", declarative.ErrInvalidFlags, err)
	}
	for from, to := range o.dataSourceMapping {
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return declarative.Settings{}, fmt.Errorf("%w: --data-source-mapping %q=%q must be old=new", declarative.ErrInvalidFlags, from, to)
		}
	}

	return declarative.NewSettings(action,
		declarative.WithWorkspace(o.workspace),
		declarative.WithPatch(o.patch),
		declarative.WithDataSources(o.dataSources...),
		declarative.WithColumnsCase(mode),
		declarative.WithDataSourceMapping(o.dataSourceMapping),
		declarative.WithCommit(o.commit),
	)
}

// session is everything a run needs once the organization root is known.
type session struct {
	dir         string
	granular    bool
	client      *api.Client
	transformer gdcli.Transformer
	instrument  *declarative.Instrument
}

// openSession locates gooddata.yaml from g.dir and connects with the
// selected profile.
func (g *globalOptions) openSession() (*session, error) {
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return nil, err
	}
	root, err := declarative.FindRoot(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := profile.Load(filepath.Join(root, catalog.RootMarkerFile))
	if err != nil {
		return nil, err
	}
	p, err := cfg.Profile(g.profile)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("using profile", "profile", p.Name, "host", p.Host, "layout", cfg.Layout)

	var transformer gdcli.Transformer = &gdcli.Runner{Binary: g.gdBinary}
	if cfg.Layout == profile.LayoutNative {
		transformer = gdcli.NativeLayout{}
	}

	return &session{
		dir:         dir,
		granular:    dir != root,
		client:      api.NewClient(p.Host, p.Token, api.WithHeaders(p.CustomHeaders), api.WithLogger(g.logger)),
		transformer: transformer,
		instrument:  declarative.NewInstrument(g.logger, cfg.Pushgateway),
	}, nil
}

// finish pushes metrics and prints the step report. A failed push is only
// logged.
func (g *globalOptions) finish(ctx context.Context, s *session, runErr error) error {
	if err := s.instrument.Push(ctx); err != nil {
		g.logger.Warn("metrics push failed", "error", err)
	}
	if err := printReport(g.stdout, g.outFormat, s.instrument.Reports()); err != nil && runErr == nil {
		return err
	}
	return runErr
}
