package transcribe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxlab/utterance-gateway/internal/segment"
)

// fakeTranscriber records sent utterances and can simulate failures.
type fakeTranscriber struct {
	mu      sync.Mutex
	sent    []segment.Utterance
	sendErr error
	block   chan struct{}
	results chan *Result
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{results: make(chan *Result)}
}

func (f *fakeTranscriber) Start() error { return nil }

func (f *fakeTranscriber) SendUtterance(u segment.Utterance) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, u)
	return nil
}

func (f *fakeTranscriber) Results() <-chan *Result { return f.results }
func (f *fakeTranscriber) Stop() error             { return nil }
func (f *fakeTranscriber) Close() error            { return nil }

func (f *fakeTranscriber) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testUtterance(id string) segment.Utterance {
	return segment.Utterance{
		ID:         id,
		Samples:    make([]float32, 160),
		SampleRate: 16000,
		Channels:   1,
		CapturedAt: time.Now(),
		Duration:   10 * time.Millisecond,
	}
}

func TestQueueSink_DeliversUtterances(t *testing.T) {
	transcriber := newFakeTranscriber()
	sink := NewQueueSink(transcriber, 4, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		sink.Run(ctx)
		close(done)
	}()

	sink.OnUtterance(testUtterance("u-1"))
	sink.OnUtterance(testUtterance("u-2"))

	deadline := time.After(time.Second)
	for transcriber.sentCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Expected 2 utterances delivered, got %d", transcriber.sentCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestQueueSink_DropsWhenQueueFull(t *testing.T) {
	transcriber := newFakeTranscriber()
	transcriber.block = make(chan struct{})
	sink := NewQueueSink(transcriber, 1, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	// First utterance is picked up by the worker and blocks in SendUtterance,
	// the second fills the queue, the third must be dropped without blocking.
	sink.OnUtterance(testUtterance("u-1"))
	time.Sleep(20 * time.Millisecond)
	sink.OnUtterance(testUtterance("u-2"))

	delivered := make(chan struct{})
	go func() {
		sink.OnUtterance(testUtterance("u-3"))
		close(delivered)
	}()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("OnUtterance blocked on a full queue")
	}

	if depth := sink.QueueDepth(); depth != 1 {
		t.Errorf("Expected queue depth 1, got %d", depth)
	}

	close(transcriber.block)
}

func TestQueueSink_ContinuesAfterSendFailure(t *testing.T) {
	transcriber := newFakeTranscriber()
	sink := NewQueueSink(transcriber, 4, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	transcriber.mu.Lock()
	transcriber.sendErr = errors.New("connection lost")
	transcriber.mu.Unlock()
	sink.OnUtterance(testUtterance("u-fail"))
	time.Sleep(20 * time.Millisecond)

	transcriber.mu.Lock()
	transcriber.sendErr = nil
	transcriber.mu.Unlock()
	sink.OnUtterance(testUtterance("u-ok"))

	deadline := time.After(time.Second)
	for transcriber.sentCount() < 1 {
		select {
		case <-deadline:
			t.Fatal("Expected delivery to resume after a send failure")
		case <-time.After(5 * time.Millisecond):
		}
	}

	transcriber.mu.Lock()
	got := transcriber.sent[0].ID
	transcriber.mu.Unlock()
	if got != "u-ok" {
		t.Errorf("Expected utterance 'u-ok' delivered, got '%s'", got)
	}
}

func TestNewQueueSink_ClampsQueueSize(t *testing.T) {
	sink := NewQueueSink(newFakeTranscriber(), 0, zerolog.Nop())
	if cap(sink.queue) != 1 {
		t.Errorf("Expected queue capacity clamped to 1, got %d", cap(sink.queue))
	}
}
