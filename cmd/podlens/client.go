package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/podlens/podlens/internal/api"
	"github.com/podlens/podlens/internal/config"
	"github.com/podlens/podlens/internal/session"
)

// newLensClient builds an API client from the loaded configuration. It is
// a var so command tests can point it at a stub server.
var newLensClient = func() (*api.Client, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("loading config: %w", err)
	}

	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []api.Option{
		api.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.API.VerifyToken != "" {
		opts = append(opts, api.WithTokenSource(api.StaticToken(cfg.API.VerifyToken)))
	}

	return api.New(cfg.API.BaseURL, opts...), cfg, nil
}

// newSession wires a fresh session to a configured client.
func newSession() (*session.Session, *api.Client, config.Config, error) {
	client, cfg, err := newLensClient()
	if err != nil {
		return nil, nil, config.Config{}, err
	}

	sess := session.New(client, cfg.Limits.DailyQueries, cfg.Limits.Conversations)
	sess.SetSourceLimit(cfg.Limits.Sources)
	return sess, client, cfg, nil
}
