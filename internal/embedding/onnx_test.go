//go:build cgo

package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestONNXEmbedder_EmbedAfterClose(t *testing.T) {
	e := &ONNXEmbedder{dimensions: 2, inputSize: 1, cache: NewFrameCache(0)}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	frame := Frame{ID: "px", Width: 1, Height: 1, Channels: 3, Pixels: []float32{0.1, 0.2, 0.3}}
	if _, err := e.Embed(context.Background(), frame); !errors.Is(err, ErrEmbedderClosed) {
		t.Errorf("expected ErrEmbedderClosed, got %v", err)
	}
}

func TestONNXEmbedder_CloseWaitsForEmbed(t *testing.T) {
	e := &ONNXEmbedder{dimensions: 2, inputSize: 1, cache: NewFrameCache(0)}

	// Hold the lock the way a running Embed does.
	e.mu.Lock()
	closed := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = e.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while an Embed held the embedder")
	case <-time.After(50 * time.Millisecond):
	}
	e.mu.Unlock()
	wg.Wait()
}
