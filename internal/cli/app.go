package cli

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/voicepay/internal/logging"
	"github.com/dmitrijs2005/voicepay/internal/server"
	"github.com/dmitrijs2005/voicepay/internal/server/config"
	"github.com/spf13/cobra"

	gs "github.com/dmitrijs2005/voicepay/internal/server/grpc"
)

var errLocalOnly = errors.New("this command needs a local store, drop --server")

type App struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	styles Styles

	configPath string
	serverAddr string
	token      string

	cfg *config.Config

	// newBackend opens the backend for one command.
	newBackend func(ctx context.Context) (backend, error)
}

func NewApp(in io.Reader, out, errOut io.Writer) *App {
	a := &App{
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		styles: NewStyles(DefaultTheme),
	}
	a.newBackend = a.openBackend
	return a
}

// Command builds the voicectl command tree.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "voicectl",
		Short:         "Manage voice enrollments and test authentication",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.loadConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "server config file (json or yaml)")
	pf.StringVar(&a.serverAddr, "server", "", "address of a running server; local store when empty")
	pf.StringVar(&a.token, "token", "", "access token sent to --server")

	root.AddCommand(
		a.registerCommand(),
		a.authenticateCommand(),
		a.usersCommand(),
		a.statsCommand(),
		a.extractCommand(),
		a.tokenCommand(),
		a.intentCommand(),
		a.unsealCommand(),
	)
	return root
}

func (a *App) loadConfig() {
	if a.cfg != nil {
		return
	}
	var args []string
	if a.configPath != "" {
		args = []string{"-c", a.configPath}
	}
	a.cfg = config.Load(args)
}

func (a *App) isRemote() bool { return a.serverAddr != "" }

func (a *App) openBackend(ctx context.Context) (backend, error) {
	if a.isRemote() {
		c, err := gs.NewClient(a.serverAddr)
		if err != nil {
			return nil, err
		}
		if a.token != "" {
			c.SetToken(a.token)
		}
		return &remoteBackend{c: c}, nil
	}

	logger := logging.NewText(a.errOut, a.cfg.LogLevel)
	c, err := server.Build(ctx, a.cfg, logger)
	if err != nil {
		return nil, err
	}
	return &localBackend{c: c}, nil
}

// withBackend opens a backend, runs fn and closes it.
func (a *App) withBackend(ctx context.Context, fn func(b backend) error) error {
	b, err := a.newBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}
