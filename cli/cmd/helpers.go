package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/windlass-io/windlass/cli/config"
	"github.com/windlass-io/windlass/remote"
)

// loadConfig reads the config file named by --config. A missing flag
// returns an empty config: every value can be supplied by flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// newFacade builds the remote HTTP client from flags and config.
// Flags override config values.
func newFacade(c *cli.Context, cfg *config.Config) (remote.Facade, error) {
	baseURL := c.String("base-url")
	if baseURL == "" {
		baseURL = cfg.Remote.BaseURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("remote base URL required (--base-url or remote.base_url in config)")
	}

	token := c.String("token")
	if token == "" {
		token = cfg.Remote.Token
	}

	return remote.NewClient(remote.Config{
		BaseURL: baseURL,
		Token:   token,
		Timeout: cfg.Remote.Timeout.Duration,
	})
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
