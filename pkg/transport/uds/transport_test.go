package uds

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/agentlog/pkg/core"
)

// startServer runs srv until the test ends and waits for it to listen.
func startServer(t *testing.T, srv *Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		srv.Shutdown()
	})

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}
}

func dial(t *testing.T, sock string) *Client {
	t.Helper()
	client, err := Dial(sock)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func requestCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPingRoundTrip(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "test.sock")
	srv := NewServer(sock, nil)
	srv.Handle(MethodPing, func(_ context.Context, _ Message) (any, error) {
		return PingResponse{Pong: true, PID: 42}, nil
	})
	startServer(t, srv)

	resp, err := dial(t, sock).Request(requestCtx(t), MethodPing, nil)
	require.NoError(t, err)

	var pong PingResponse
	require.NoError(t, resp.Decode(&pong))
	assert.True(t, pong.Pong)
	assert.Equal(t, 42, pong.PID)
}

func TestStatusPayload(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "test.sock")
	srv := NewServer(sock, nil)
	srv.Handle(MethodStatus, func(_ context.Context, _ Message) (any, error) {
		return StatusResponse{State: core.StatusWaiting, Iteration: 3, LastExit: 0, CostUSD: 1.25}, nil
	})
	startServer(t, srv)

	resp, err := dial(t, sock).Request(requestCtx(t), MethodStatus, nil)
	require.NoError(t, err)

	var st StatusResponse
	require.NoError(t, resp.Decode(&st))
	assert.Equal(t, core.StatusWaiting, st.State)
	assert.Equal(t, 3, st.Iteration)
	assert.Equal(t, 1.25, st.CostUSD)
	assert.True(t, st.StartedAt.IsZero())
}

func TestUnknownMethod(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "test.sock")
	srv := NewServer(sock, nil)
	startServer(t, srv)

	_, err := dial(t, sock).Request(requestCtx(t), "NoSuchMethod", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method")
}

func TestHandlerError(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "test.sock")
	srv := NewServer(sock, nil)
	srv.Handle(MethodStop, func(context.Context, Message) (any, error) {
		return nil, errors.New("already stopping")
	})
	startServer(t, srv)

	_, err := dial(t, sock).Request(requestCtx(t), MethodStop, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already stopping")
}

func TestBroadcastEvent(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "test.sock")
	srv := NewServer(sock, nil)
	srv.Handle(MethodPing, func(_ context.Context, _ Message) (any, error) {
		return PingResponse{Pong: true}, nil
	})
	startServer(t, srv)

	client := dial(t, sock)
	evtCh := make(chan Message, 1)
	client.OnEvent(func(msg Message) { evtCh <- msg })

	// The ping guarantees the server has registered the connection.
	_, err := client.Request(requestCtx(t), MethodPing, nil)
	require.NoError(t, err)

	evt, err := NewEvent(EventAgent, core.ToolEvent("Read", "Read: /a"))
	require.NoError(t, err)
	srv.Broadcast(evt)

	select {
	case msg := <-evtCh:
		assert.Equal(t, EventAgent, msg.Method)
		var e core.Event
		require.NoError(t, msg.Decode(&e))
		assert.Equal(t, "[TOOL] Read: /a", e.Line())
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for broadcast event")
	}
}

func TestStartRefusesLiveSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "test.sock")
	startServer(t, NewServer(sock, nil))

	err := NewServer(sock, nil).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use")
}

func TestClientDoneOnShutdown(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "test.sock")
	srv := NewServer(sock, nil)
	srv.Handle(MethodPing, func(_ context.Context, _ Message) (any, error) { return PingResponse{Pong: true}, nil })
	startServer(t, srv)

	client := dial(t, sock)
	_, err := client.Request(requestCtx(t), MethodPing, nil)
	require.NoError(t, err)

	srv.Shutdown()
	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client not notified of shutdown")
	}
	_, err = client.Request(requestCtx(t), MethodPing, nil)
	assert.Error(t, err)
}
