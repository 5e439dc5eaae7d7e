package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipstream/accounts/internal/server"
)

type failingSecurityLayer struct{}

func (f failingSecurityLayer) Listen(_, _ string) (net.Listener, error) {
	return nil, errors.New("listen refused")
}

func TestNewHTTPServer(t *testing.T) {
	s := NewHTTPServer(http.NewServeMux(), ":8080")

	assert.NotNil(t, s)
	assert.Equal(t, ":8080", s.Address())
}

func TestHTTPServer_Start_ListenError(t *testing.T) {
	s := NewHTTPServer(http.NewServeMux(), ":8080")

	err := s.Start(failingSecurityLayer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestHTTPServer_StartAndStop(t *testing.T) {
	s := NewHTTPServer(http.NewServeMux(), "127.0.0.1:0")

	done := make(chan error, 1)
	go func() {
		done <- s.Start(server.NewPlainListener())
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
