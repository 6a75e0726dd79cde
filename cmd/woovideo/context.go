package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"woovideo/internal/client"
	"woovideo/internal/notifier"
)

const (
	transportSSE  = "sse"
	transportWS   = "ws"
	transportNone = "none"

	envAPIURL = "WOOVIDEO_API_URL"
	envToken  = "WOOVIDEO_TOKEN"
)

type commandContext struct {
	apiURL    string
	token     string
	transport string
	verbose   bool
	policy    notifier.Policy

	client *client.Client
}

func newCommandContext() *commandContext {
	return &commandContext{policy: notifier.DefaultPolicy()}
}

func (c *commandContext) logger() zerolog.Logger {
	if !c.verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func (c *commandContext) ensureClient() (*client.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	_ = godotenv.Load()

	base := strings.TrimSpace(c.apiURL)
	if base == "" {
		base = strings.TrimSpace(os.Getenv(envAPIURL))
	}
	if base == "" {
		return nil, fmt.Errorf("api url is required: pass --api-url or set %s", envAPIURL)
	}
	token := strings.TrimSpace(c.token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(envToken))
	}
	if token == "" {
		return nil, errors.New("token is required: pass --token or set " + envToken)
	}

	cl, err := client.New(client.Options{BaseURL: base, Token: token, Logger: c.logger()})
	if err != nil {
		return nil, err
	}
	c.client = cl
	return cl, nil
}

func (c *commandContext) pushChannel(cl *client.Client) (notifier.PushChannel, error) {
	switch strings.ToLower(strings.TrimSpace(c.transport)) {
	case "", transportSSE:
		return cl.Events(), nil
	case transportWS:
		return cl.WebSocket(), nil
	case transportNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q (use sse, ws or none)", c.transport)
	}
}

func (c *commandContext) newNotifier(cl *client.Client) (*notifier.Notifier, error) {
	push, err := c.pushChannel(cl)
	if err != nil {
		return nil, err
	}
	return notifier.New(push, cl, notifier.WithPolicy(c.policy), notifier.WithLogger(c.logger())), nil
}
