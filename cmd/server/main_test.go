package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer blocks in Start until Shutdown is called, like fiber's Listen.
type fakeServer struct {
	stopped  chan struct{}
	startErr error
}

func newFakeServer() *fakeServer {
	return &fakeServer{stopped: make(chan struct{})}
}

func (s *fakeServer) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	<-s.stopped
	return nil
}

func (s *fakeServer) Shutdown(context.Context) error {
	close(s.stopped)
	return nil
}

func TestServe_WaitsForRelease(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var released atomic.Bool
	release := func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		released.Store(true)
		return nil
	}

	result := make(chan error, 1)
	go func() { result <- serve(ctx, newFakeServer(), release, time.Second) }()

	cancel()
	select {
	case err := <-result:
		require.NoError(t, err)
		assert.True(t, released.Load(), "serve returned before resources were released")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

func TestServe_StartError(t *testing.T) {
	srv := newFakeServer()
	srv.startErr = errors.New("address already in use")

	err := serve(context.Background(), srv, func(context.Context) error { return nil }, time.Second)
	assert.EqualError(t, err, "address already in use")
}
