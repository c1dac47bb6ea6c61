// Package e2etest starts the real server in-process and talks to it over HTTP.
package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/rexcoach/internal/logging"
)

// Server is a running test server.
type Server struct {
	url        string
	client     *Client
	cancel     context.CancelCauseFunc
	serverDone chan struct{}
}

// LogAddrKey is the key the server logs its listening address under.
const LogAddrKey = "addr"

// StartServer runs the server and waits until it is ready. It is shut down when the test finishes.
//
// logSink receives the server logs, usually testhelpers.NewWriter. lookupEnv has the signature of [os.LookupEnv].
// run must log the address it listens on under LogAddrKey.
func StartServer(
	t *testing.T,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run func(context.Context, *slog.Logger, func(string) (string, bool)) error,
) (*Server, error) {
	var server *Server
	ctx, cancel := context.WithCancelCause(t.Context())
	serverDone := make(chan struct{})
	t.Cleanup(func() {
		cancel(nil)
		<-serverDone
	})

	// The port is allocated dynamically so it is picked from the logs.
	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})))

	go func() {
		defer close(serverDone)
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()

	var addr string
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("server stopped: %w", context.Cause(ctx))
	case addr = <-addrCh:
	}

	serverURL := "http://" + addr
	client, err := NewClient(serverURL)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	server = &Server{url: serverURL, client: client, cancel: cancel, serverDone: serverDone}
	return server, nil
}

// Client returns a client sharing one cookie jar.
func (s *Server) Client() *Client {
	return s.client
}

// NewClient returns a client with its own cookie jar, i.e. a separate browser.
func (s *Server) NewClient() (*Client, error) {
	return NewClient(s.url)
}

// URL returns the base URL.
func (s *Server) URL() string {
	return s.url
}
