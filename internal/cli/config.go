package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/imgstack/pkg/config"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or inspect the config file",
	}

	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configPathCommand())

	return cmd
}

func (c *CLI) configInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.resolveConfigPath()
			if err != nil {
				return err
			}
			if err := config.Default().Write(path, force); err != nil {
				return err
			}
			printSuccess("Wrote default config")
			printFile(path)
			printNextStep("Show effective settings", "imgstack config show")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (c *CLI) configShowCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				return c.Config.Encode(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderConfig(c.Config))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "toml", false, "print as TOML")
	return cmd
}

func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.resolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// renderConfig lays the settings out as a section/key/value table.
func renderConfig(cfg config.Config) string {
	bg := cfg.Compose.Background
	if bg == "" {
		bg = "transparent"
	}
	rows := [][]string{
		{"compose", "policy", cfg.Compose.Policy},
		{"", "interpolator", cfg.Compose.Interpolator},
		{"", "background", bg},
		{"export", "filename", cfg.Export.Filename},
		{"", "format", cfg.Export.Format},
		{"", "quality", strconv.Itoa(cfg.Export.Quality)},
		{"", "dir", cfg.Export.Dir},
		{"cache", "backend", cfg.Cache.Backend},
		{"", "ttl", cfg.Cache.TTL.String()},
		{"", "redis_addr", cfg.Cache.RedisAddr},
		{"fetch", "timeout", cfg.Fetch.Timeout.String()},
		{"", "max_bytes", formatBytes(int(cfg.Fetch.MaxBytes))},
		{"server", "addr", cfg.Server.Addr},
		{"", "session_ttl", cfg.Server.SessionTTL.String()},
		{"", "max_upload_mb", strconv.FormatInt(cfg.Server.MaxUploadMB, 10)},
		{"", "breakpoint", strconv.Itoa(cfg.Server.Breakpoint)},
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Section", "Key", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return StyleHighlight
			case col == 1:
				return StyleDim
			}
			return StyleValue
		})
	return t.Render()
}
