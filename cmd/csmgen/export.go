package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func NewCmdExport(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export generated data as a roster workbook or a section calendar.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(NewCmdExportRoster(configPath), NewCmdExportCalendar(configPath))
	return cmd
}

// ── roster ──

type ExportRosterOptions struct {
	ConfigPath *string
	Output     string
}

func NewCmdExportRoster(configPath *string) *cobra.Command {
	o := &ExportRosterOptions{ConfigPath: configPath}
	cmd := &cobra.Command{
		Use:   "roster [-o FILENAME]",
		Short: "Write every course's sections and students to an .xlsx workbook.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return o.Run(cmd.Context())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ExportRosterOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Output file (defaults to roster_<date>.xlsx).")
}

func (o *ExportRosterOptions) Run(ctx context.Context) error {
	a, err := bootstrap(*o.ConfigPath)
	if err != nil {
		return err
	}
	defer a.Close()

	buf, filename, err := a.svc.Export.ExportRoster(contextOrBackground(ctx))
	if err != nil {
		return err
	}
	if o.Output != "" {
		filename = o.Output
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入 %q 失败: %w", filename, err)
	}
	fmt.Fprintln(os.Stdout, filename)
	return nil
}

// ── calendar ──

type ExportCalendarOptions struct {
	ConfigPath *string
	SectionID  string
	Output     string
}

func NewCmdExportCalendar(configPath *string) *cobra.Command {
	o := &ExportCalendarOptions{ConfigPath: configPath}
	cmd := &cobra.Command{
		Use:   "calendar --section ID [-o FILENAME]",
		Short: "Write a section's weekly meetings, overrides applied, to an .ics file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ExportCalendarOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.SectionID, "section", o.SectionID, "ID of the section to export.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Output file (defaults to section_<id>.ics).")
}

func (o *ExportCalendarOptions) Validate(args []string) error {
	if len(o.SectionID) == 0 {
		return fmt.Errorf("must specify --section ID")
	}
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return nil
}

func (o *ExportCalendarOptions) Run(ctx context.Context) error {
	a, err := bootstrap(*o.ConfigPath)
	if err != nil {
		return err
	}
	defer a.Close()

	content, err := a.svc.Export.ExportSectionCalendar(contextOrBackground(ctx), o.SectionID)
	if err != nil {
		return err
	}
	filename := o.Output
	if filename == "" {
		filename = fmt.Sprintf("section_%s.ics", o.SectionID)
	}
	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		return fmt.Errorf("写入 %q 失败: %w", filename, err)
	}
	fmt.Fprintln(os.Stdout, filename)
	return nil
}
