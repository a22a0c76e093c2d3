package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/insightql/internal/server"
	"github.com/leapstack-labs/insightql/pkg/core"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr      string
	WatchDir  string
	WatchKind string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dataset API over HTTP",
		Long: `Serve datasets, queries and insights over HTTP.

Endpoints:
  POST   /dataset/{id}[?kind=rooms]  Add a dataset from the request body
  DELETE /dataset/{id}               Remove a dataset
  GET    /datasets                   List datasets
  GET    /dataset/{id}/insights      Department report (?depts=a,b)
  POST   /query                      Run a JSON query
  GET    /                           Live dataset page

With --watch-dir, zip archives written to the directory are added as
datasets named after the file.`,
		Example: `  # Serve on the default address
  insightql serve

  # Serve on all interfaces and watch a drop directory
  insightql serve --addr :4321 --watch-dir ./incoming`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default from server.addr)")
	cmd.Flags().StringVar(&opts.WatchDir, "watch-dir", "", "Directory to watch for dataset archives")
	cmd.Flags().StringVar(&opts.WatchKind, "watch-kind", string(core.KindSections), "Kind of watched archives: sections, rooms")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	kind, err := core.ParseDatasetKind(opts.WatchKind)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	srvCfg := cmdCtx.Cfg.GetServer()
	addr := srvCfg.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	watchDir := srvCfg.WatchDir
	if opts.WatchDir != "" {
		watchDir = opts.WatchDir
	}

	srv := server.New(server.Config{
		Engine:          cmdCtx.Engine,
		Addr:            addr,
		MaxBodyBytes:    srvCfg.MaxBodyBytes,
		ShutdownTimeout: srvCfg.ShutdownTimeout,
		WatchDir:        watchDir,
		WatchKind:       kind,
		Logger:          cmdCtx.Logger,
	})

	cmdCtx.Renderer.Success("Serving on http://" + addr)
	return srv.Serve(cmd.Context())
}
