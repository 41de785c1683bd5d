// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docset-builder/docset-builder/internal/app"
	"github.com/docset-builder/docset-builder/pkg/buildinfo"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// inspectReport is the --json form of an inspection.
type inspectReport struct {
	Package           string            `json:"package"`
	BuildRoot         string            `json:"build_root"`
	BuildDependencies []string          `json:"build_dependencies"`
	AllDependencies   []string          `json:"all_dependencies"`
	BuildCommands     []string          `json:"build_commands"`
	UsesIcon          bool              `json:"uses_icon"`
	IconPath          string            `json:"icon_path,omitempty"`
	EntryPage         string            `json:"entry_page,omitempty"`
	Sources           map[string]string `json:"sources"`
	Shadowed          []shadowedWrite   `json:"shadowed,omitempty"`
	Missing           []string          `json:"missing,omitempty"`
}

type shadowedWrite struct {
	Field  string `json:"field"`
	Source string `json:"source"`
}

func newInspectCommand(a *App, flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <package> <repo-dir>",
		Short: "Show the build information inferred from a checkout",
		Long: `Infer how to build the documentation of a package from a local checkout
and print the result without building anything.

Each field is shown with the source that provided it. Later sources that
tried to write an already set field are listed as shadowed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSettings(cmd.Context(), flags)
			if err != nil {
				return err
			}
			p, err := app.NewInspector(s.paths)
			if err != nil {
				return err
			}
			info, err := p.Inspect(args[0], args[1])
			if err != nil {
				return err
			}
			if asJSON {
				return writeInspectJSON(a.stdout, info)
			}
			renderInspect(a.stdout, info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newInspectReport(info buildinfo.BuildInfo) inspectReport {
	r := inspectReport{
		Package:           info.PackageName,
		BuildRoot:         info.BuildRoot,
		BuildDependencies: info.BuildDependencies,
		AllDependencies:   info.AllDependencies,
		BuildCommands:     info.BuildCommands,
		UsesIcon:          info.UsesIcon,
		IconPath:          info.IconPath,
		EntryPage:         info.EntryPage,
		Sources:           make(map[string]string, len(info.Sources)),
	}
	for f, src := range info.Sources {
		r.Sources[f.String()] = src.String()
	}
	for _, s := range info.Shadowed {
		r.Shadowed = append(r.Shadowed, shadowedWrite{Field: s.Field.String(), Source: s.Source.String()})
	}
	for _, f := range buildinfo.MissingFields(info) {
		r.Missing = append(r.Missing, f.String())
	}
	return r
}

func writeInspectJSON(w io.Writer, info buildinfo.BuildInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(newInspectReport(info)); err != nil {
		return fmt.Errorf("encode inspection: %w", err)
	}
	return nil
}

func renderInspect(w io.Writer, info buildinfo.BuildInfo) {
	fmt.Fprintln(w, TitleStyle.Render("Build information for "+info.PackageName))
	fmt.Fprintln(w)

	rows := []struct {
		field buildinfo.Field
		value string
	}{
		{buildinfo.FieldBuildRoot, info.BuildRoot},
		{buildinfo.FieldBuildDependencies, strings.Join(info.BuildDependencies, "\n")},
		{buildinfo.FieldBuildCommands, strings.Join(info.BuildCommands, "\n")},
		{buildinfo.FieldAllDependencies, strings.Join(info.AllDependencies, "\n")},
		{buildinfo.FieldUsesIcon, strconv.FormatBool(info.UsesIcon)},
		{buildinfo.FieldIconPath, info.IconPath},
		{buildinfo.FieldEntryPage, info.EntryPage},
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SubtitleStyle).
		Headers("FIELD", "VALUE", "SOURCE").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TitleStyle.Padding(0, 1)
			case col == 0:
				return CmdStyle.Padding(0, 1)
			case col == 2:
				return SubtitleStyle.Padding(0, 1)
			default:
				return lipgloss.NewStyle().Padding(0, 1)
			}
		})
	for _, r := range rows {
		t.Row(r.field.String(), r.value, info.SourceOf(r.field).String())
	}
	fmt.Fprintln(w, t.Render())

	if len(info.Shadowed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SubtitleStyle.Render("Ignored later values:"))
		for _, s := range info.Shadowed {
			fmt.Fprintf(w, "  - %s from %s\n", CmdStyle.Render(s.Field.String()), s.Source)
		}
	}

	fmt.Fprintln(w)
	missing := buildinfo.MissingFields(info)
	if len(missing) == 0 {
		fmt.Fprintln(w, SuccessStyle.Render("✓ Ready to build"))
		return
	}
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = f.String()
	}
	fmt.Fprintln(w, WarningStyle.Render("! Missing: "+strings.Join(names, ", ")))
}
