package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/imgstack/internal/server"
	"github.com/matzehuels/imgstack/pkg/export"
	"github.com/matzehuels/imgstack/pkg/pipeline"
	"github.com/matzehuels/imgstack/pkg/session"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stitching API over HTTP",
		Long: `Serve starts the imgstack HTTP API. Each browser gets its own session,
kept in memory and dropped after the configured idle time.`,
		Example: `  # Listen on the configured address (default :8080)
  imgstack serve

  # Listen on a custom address
  imgstack serve --addr 127.0.0.1:3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.Config.Server.Addr = addr
			}
			runner, err := c.newRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			srv, err := c.newServer(runner)
			if err != nil {
				return err
			}
			printInfo("Serving imgstack API")
			printKeyValue("address", c.Config.Server.Addr)
			printKeyValue("session ttl", c.Config.Server.SessionTTL.String())
			printKeyValue("cache", c.Config.Cache.Backend)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// newServer builds the HTTP server from the config. Sessions share the
// runner's cache for URL downloads.
func (c *CLI) newServer(runner *pipeline.Runner) (*server.Server, error) {
	cfg := c.Config
	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return nil, err
	}

	opts := c.pipelineOptions(nil)
	sessions := session.NewStore(cfg.Server.SessionTTL.Duration, func() (*session.Session, error) {
		return runner.NewSession(opts)
	})

	return server.New(server.Config{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		Breakpoint:     cfg.Server.Breakpoint,
		Export:         export.Options{Format: format, Quality: cfg.Export.Quality},
	}, sessions, runner.Cache, c.Logger), nil
}
