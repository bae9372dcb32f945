package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flowgraph/flowdesigner/internal/config"
	"github.com/flowgraph/flowdesigner/internal/infrastructure/logging"
	"github.com/flowgraph/flowdesigner/pkg/flowdesigner"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath  string
	logLevel string

	cfg *config.Config
	log *zap.Logger
	rt  *flowdesigner.Runtime
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "flowdesigner",
		Short: "Design BPMN process diagrams and deploy them to a workflow engine",
		Long: `flowdesigner edits process diagrams made of start, end, task and
gateway nodes. It converts between the editor's graph JSON and BPMN 2.0 XML,
renders diagrams to PNG, and deploys or starts processes on the engine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newVersionCmd(),
		newPaletteCmd(),
		newExportCmd(a),
		newImportCmd(a),
		newValidateCmd(a),
		newRenderCmd(a),
		newSaveCmd(a),
		newLoadCmd(a),
		newDeployCmd(a),
		newStartCmd(a),
	)
	return root
}

// setup loads configuration and wires the runtime. Commands that touch
// storage or the engine call it from RunE.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return err
	}
	rt, err := flowdesigner.NewRuntime(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.rt = cfg, log, rt
	cmd.PostRunE = func(*cobra.Command, []string) error {
		_ = a.log.Sync()
		return a.rt.Close()
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "FlowDesigner %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		},
	}
}
