package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeServer struct {
	startErr error
	stop     chan struct{}
	shutdown bool
}

func newFakeServer(startErr error) *fakeServer {
	return &fakeServer{startErr: startErr, stop: make(chan struct{})}
}

func (f *fakeServer) Start(addr string) error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	if !f.shutdown {
		f.shutdown = true
		close(f.stop)
	}
	return nil
}

func TestServeUntilSignalReturnsListenError(t *testing.T) {
	listenErr := errors.New("listen tcp :8080: bind: address already in use")
	srv := newFakeServer(listenErr)

	err := serveUntilSignal(srv, ":8080", make(chan os.Signal), zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, listenErr)
	assert.True(t, srv.shutdown)
}

func TestServeUntilSignalStopsCleanly(t *testing.T) {
	srv := newFakeServer(nil)
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGTERM

	assert.NoError(t, serveUntilSignal(srv, ":8080", sigCh, zap.NewNop()))
	assert.True(t, srv.shutdown)
}
