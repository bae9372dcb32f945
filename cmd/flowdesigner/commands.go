package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flowgraph/flowdesigner/internal/adapters/engine"
	"github.com/flowgraph/flowdesigner/internal/app/dto"
	"github.com/flowgraph/flowdesigner/internal/core/palette"
	"github.com/flowgraph/flowdesigner/internal/render"
	"github.com/flowgraph/flowdesigner/pkg/flowdesigner"
	"github.com/flowgraph/flowdesigner/pkg/validation"
)

// open reads a diagram file onto a fresh designer. Files ending in .json are
// graph data; anything else is treated as BPMN XML.
func (a *app) open(cmd *cobra.Command, path string) (*flowdesigner.Designer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := a.rt.NewDesigner()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return d, d.Toolbar.ImportJSON(data)
	}
	report, err := d.Toolbar.Import(string(data))
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	return d, nil
}

// writeOut writes to path, or to stdout when path is empty or "-".
func writeOut(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func newPaletteCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "palette",
		Short: "List the shapes that can be dropped on a canvas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items := palette.Items()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tLABEL\tFILL\tSTROKE")
			for _, it := range items {
				var fill, stroke string
				if it.Style != nil {
					fill, stroke = it.Style.Fill, it.Style.Stroke
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Type, it.Label, fill, stroke)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print drag payloads as JSON")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var out, format, dir string
	cmd := &cobra.Command{
		Use:   "export <diagram>",
		Short: "Export a diagram as BPMN XML or graph JSON",
		Long: `Export reads graph JSON (.json) or BPMN XML and writes it in the
requested format. With --dir the file is named diagram_<unixms>.bpmn.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			d, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			if dir != "" {
				path, err := d.Toolbar.ExportFile(dir, format)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}
			var buf bytes.Buffer
			if err := d.Toolbar.Export(&buf, format); err != nil {
				return err
			}
			return writeOut(cmd, out, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", dto.FormatBPMN, "bpmn or json")
	cmd.Flags().StringVar(&dir, "dir", "", "write a timestamped file into this directory")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "import <file.bpmn>",
		Short: "Convert BPMN XML to graph JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			d, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := d.Toolbar.Export(&buf, dto.FormatJSON); err != nil {
				return err
			}
			buf.WriteByte('\n')
			return writeOut(cmd, out, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <diagram>",
		Short: "Check a diagram's structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			d, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			g, err := d.GraphData()
			if err != nil {
				return err
			}
			opts := validation.DiagramOptions{RequireEvents: strict, CheckCycles: strict}
			if err := validation.ValidateDiagram(g, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d nodes, %d edges\n", g.NodeCount(), g.EdgeCount())
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "require start and end events and reject cycles")
	return cmd
}

func newRenderCmd(a *app) *cobra.Command {
	var out string
	var padding float64
	cmd := &cobra.Command{
		Use:   "render <diagram>",
		Short: "Render a diagram to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			d, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			g, err := d.GraphData()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := render.PNG(&buf, g, render.Options{Padding: padding}); err != nil {
				return err
			}
			return writeOut(cmd, out, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "diagram.png", "output file, - for stdout")
	cmd.Flags().Float64Var(&padding, "padding", 0, "margin around the diagram in pixels")
	return cmd
}

func newSaveCmd(a *app) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "save <diagram>",
		Short: "Store a diagram in the configured snapshot store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			d, err := a.open(cmd, args[0])
			if err != nil {
				return err
			}
			tb := a.rt.Toolbar(d, key)
			resp, err := tb.Save(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %q: %d nodes, %d edges, %d bytes (%s/%s)\n",
				resp.Key, resp.Nodes, resp.Edges, resp.Bytes, resp.Codec, resp.Compression)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "snapshot key (default storage.key)")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var key, out, format string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Print the saved diagram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			d := a.rt.NewDesigner()
			tb := a.rt.Toolbar(d, key)
			if _, err := tb.Load(cmd.Context()); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := tb.Export(&buf, format); err != nil {
				return err
			}
			return writeOut(cmd, out, buf.Bytes())
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "snapshot key (default storage.key)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", dto.FormatJSON, "bpmn or json")
	return cmd
}

func printResult(w io.Writer, res *engine.Result) {
	if res == nil {
		return
	}
	fmt.Fprintf(w, "%d %s\n", res.StatusCode, res.Body)
}

func newDeployCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "deploy [diagram]",
		Short: "Deploy a diagram to the workflow engine",
		Long: `Deploy posts the diagram's BPMN to the engine. Without a diagram the
built-in leave-request process is deployed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			d := a.rt.NewDesigner()
			if len(args) == 1 {
				var err error
				if d, err = a.open(cmd, args[0]); err != nil {
					return err
				}
			}
			res, err := d.Toolbar.Deploy(cmd.Context(), name)
			printResult(cmd.OutOrStdout(), res)
			return err
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "process name (default engine.process_name)")
	return cmd
}

func newStartCmd(a *app) *cobra.Command {
	var key, businessKey string
	var vars map[string]string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a process instance on the workflow engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			req := engine.StartRequest{ProcessDefinitionKey: key, BusinessKey: businessKey}
			if len(vars) > 0 {
				req.Variables = make(map[string]interface{}, len(vars))
				for k, v := range vars {
					req.Variables[k] = v
				}
			}
			res, err := a.rt.NewDesigner().Toolbar.Start(cmd.Context(), req)
			printResult(cmd.OutOrStdout(), res)
			return err
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "process definition key")
	cmd.Flags().StringVarP(&businessKey, "business-key", "b", "", "business key")
	cmd.Flags().StringToStringVar(&vars, "var", nil, "process variable as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
