package publish

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/clusterprops/internal/ctxlog"
	"github.com/specialistvlad/clusterprops/internal/engine"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the event name results are emitted under.
const DefaultEvent = "cluster_properties"

// SocketIOOptions configures a SocketIO sink.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	Event              string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// SocketIO emits every cycle result to a socket.io server.
type SocketIO struct {
	io    *socket.Socket
	event string
}

// DialSocketIO connects and waits for the server to accept the socket.
func DialSocketIO(ctx context.Context, opts SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("URL %q needs a scheme and host", opts.URL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	event := opts.Event
	if event == "" {
		event = DefaultEvent
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "/"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(namespace, sockOpts)

	done := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		select {
		case done <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case done <- err:
		default:
		}
	})

	io.Connect()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-dialCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out connecting to %s: %w", opts.URL, dialCtx.Err())
	case err := <-done:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("failed to connect to %s: %w", opts.URL, err)
		}
	}

	logger.Info("Connected result publisher.", "namespace", namespace, "event", event)
	return &SocketIO{io: io, event: event}, nil
}

// Publish implements engine.Sink.
func (s *SocketIO) Publish(ctx context.Context, r *engine.Result) error {
	payload, err := Payload(r)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Emitting cycle result.", "event", s.event, "tasks", len(r.Tasks))
	s.io.Emit(s.event, payload)
	return nil
}

// Close disconnects the socket.
func (s *SocketIO) Close() {
	s.io.Disconnect()
}

// Payload converts r to the plain map form sent over the wire.
func Payload(r *engine.Result) (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cycle %s: %w", r.CycleID, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to encode cycle %s: %w", r.CycleID, err)
	}
	return out, nil
}
