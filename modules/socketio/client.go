package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Options configures the connection to the remote compiler.
type Options struct {
	URL                string        `cty:"url"`
	Namespace          string        `cty:"namespace"`
	InsecureSkipVerify bool          `cty:"insecure_skip_verify"`
	ConnectTimeout     time.Duration `cty:"connect_timeout"`
}

// DefaultOptions returns the options used for unset plan attributes.
func DefaultOptions() *Options {
	return &Options{Namespace: "/", ConnectTimeout: 15 * time.Second}
}

// socketTransport adapts a connected socket.io client to the transport interface.
type socketTransport struct {
	io *socket.Socket
}

func (s *socketTransport) emit(event string, payload any) {
	s.io.Emit(event, payload)
}

func (s *socketTransport) close() {
	s.io.Disconnect()
}

// Dial connects to the remote compiler and returns a backend bound to it.
func Dial(ctx context.Context, opts *Options) (*Backend, error) {
	if opts == nil || opts.URL == "" {
		return nil, fmt.Errorf("socketio backend requires a url")
	}
	logger := ctxlog.FromContext(ctx).With("backend", Name, "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	b := newBackend(logger)
	// Handlers are attached before connecting so no completion can be missed.
	io.On(types.EventName(FinishedEvent), b.handleFinished)
	io.On(types.EventName("disconnect"), func(reason ...any) {
		b.fail(fmt.Errorf("disconnected from compiler: %v", first(reason)))
	})

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "namespace", opts.Namespace, "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- fmt.Errorf("%v", first(errs))
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultOptions().ConnectTimeout
	}
	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	b.attach(&socketTransport{io: io})
	return b, nil
}

func first(args []any) any {
	if len(args) == 0 {
		return "unknown reason"
	}
	return args[0]
}
