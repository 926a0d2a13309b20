package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/01fortes/goioc/pkg/config"
	"github.com/01fortes/goioc/pkg/container"
)

type planFlags struct {
	configPath     string
	envFiles       []string
	configurations []string
	includeRelease bool
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", config.DefaultPath, "assembly configuration file")
	cmd.Flags().StringSliceVar(&f.envFiles, "env-file", nil, ".env files applied before the environment overrides")
	cmd.Flags().StringSliceVar(&f.configurations, "configuration", nil, "custom modes to enable, replaces the configured ones")
	cmd.Flags().BoolVar(&f.includeRelease, "include-release", true, "invoke release registrations, overrides the configured value")
}

// section loads the config file and applies the flags the user set
func (f *planFlags) section(cmd *cobra.Command) (*config.AssemblyRegistration, error) {
	section, err := config.Load(f.configPath, f.envFiles...)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("configuration") {
		section.Configurations = f.configurations
	}
	if cmd.Flags().Changed("include-release") {
		include := f.includeRelease
		section.IncludeRelease = &include
	}
	return section, nil
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "iocinspect",
		Short:        "Inspect container registrations",
		SilenceUsage: true,
	}
	root.AddCommand(newRegistrationsCommand(), newPlanCommand(), newComponentsCommand())
	return root
}

func newRegistrationsCommand() *cobra.Command {
	var assembly string
	cmd := &cobra.Command{
		Use:   "registrations",
		Short: "List the registrations linked into this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			descriptors := container.Registrations()
			if assembly != "" {
				descriptors = container.RegistrationsIn(assembly)
			}
			return writeDescriptors(cmd.OutOrStdout(), descriptors)
		},
	}
	cmd.Flags().StringVarP(&assembly, "assembly", "a", "", "only list registrations of this package path")
	return cmd
}

func newPlanCommand() *cobra.Command {
	var flags planFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the registrations a configuration invokes, in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			section, err := flags.section(cmd)
			if err != nil {
				return err
			}
			plan, err := container.Plan(section.AssemblyNames(), section.Configurations, section.IncludeReleaseOrDefault())
			if err != nil {
				return err
			}
			return writeDescriptors(cmd.OutOrStdout(), plan)
		},
	}
	flags.register(cmd)
	return cmd
}

func newComponentsCommand() *cobra.Command {
	var (
		flags  planFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "components",
		Short: "Initialise a container from a configuration and list its components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			section, err := flags.section(cmd)
			if err != nil {
				return err
			}

			core := container.New(&container.Config{
				Name:   "iocinspect",
				Logger: slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})),
			})
			defer core.Close()

			if err := core.InitializeFrom(section.AssemblyNames(), section.Configurations, section.IncludeReleaseOrDefault()); err != nil {
				return err
			}
			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(core.Components())
			}
			return writeComponents(cmd.OutOrStdout(), core.Components())
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeDescriptors(w io.Writer, descriptors []container.Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tASSEMBLY\tMODE\tCUSTOM MODE")
	for _, d := range descriptors {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Assembly, d.Mode, d.CustomMode)
	}
	return tw.Flush()
}

func writeComponents(w io.Writer, components []container.ComponentInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSERVICE\tIMPLEMENTATION\tREGISTRATION\tLIFETIME")
	for _, info := range components {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.Key, info.Service, info.Implementation, info.Registration, info.Lifetime)
	}
	return tw.Flush()
}
