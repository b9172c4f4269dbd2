package worker

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	workerboot "github.com/hexbound/workerboot"
	"github.com/hexbound/workerboot/bootstrap"
	"github.com/hexbound/workerboot/errors"
	"github.com/hexbound/workerboot/glue"
	"github.com/hexbound/workerboot/scope"
)

// echoModule registers a handler that answers every message with an echo,
// the way a real entry point registers its message handling.
type echoModule struct{}

func (echoModule) Entry(_ context.Context, s *scope.Scope) error {
	s.OnMessage(func(_ context.Context, msg scope.Message) {
		_ = s.Post(scope.Message{Kind: "echo:" + msg.Kind, Data: msg.Data})
	})
	return nil
}

func (echoModule) Close(context.Context) error { return nil }

func writeModuleDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"payload": "pkg/gui_bg.wasm", "probes": ["AudioContext"]}`
	if err := os.WriteFile(filepath.Join(dir, workerboot.DefaultGluePath), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func pollUntil(t *testing.T, c *Client, timeout time.Duration) scope.Message {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if msg, ok := c.Poll(); ok {
			return msg
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no message before deadline")
	return scope.Message{}
}

func TestSpawn_EchoRoundTrip(t *testing.T) {
	ctx := context.Background()
	w, err := Spawn(ctx, Options{
		Dir: writeModuleDir(t),
		Load: func(context.Context, *glue.Bindings, string) (workerboot.Module, error) {
			return echoModule{}, nil
		},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer w.Close(ctx)

	c := w.Client()
	if c.Dead() {
		t.Fatal("fresh worker reports dead")
	}

	if err := c.Post(scope.Message{Kind: "ping", Data: 7}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	msg := pollUntil(t, c, time.Second)
	if msg.Kind != "echo:ping" {
		t.Errorf("reply kind = %q", msg.Kind)
	}
	if msg.Data != 7 {
		t.Errorf("reply data = %v", msg.Data)
	}
	if w.State() != bootstrap.StateInvoked {
		t.Errorf("state = %s", w.State())
	}
}

func TestSpawn_BootstrapFailureSurfacesOnErr(t *testing.T) {
	ctx := context.Background()
	loadErr := errors.Load("payload corrupt", nil)

	w, err := Spawn(ctx, Options{
		Dir: writeModuleDir(t),
		Load: func(context.Context, *glue.Bindings, string) (workerboot.Module, error) {
			return nil, loadErr
		},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer w.Close(ctx)

	select {
	case got := <-w.Err():
		if !stderrors.Is(got, loadErr) {
			t.Errorf("Err delivered %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no error event from failed bootstrap")
	}

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker goroutine did not exit")
	}

	c := w.Client()
	if !c.Dead() {
		t.Error("client of failed worker not dead")
	}
	if err := c.Post(scope.Message{Kind: "ping"}); err == nil {
		t.Error("Post to failed worker should error")
	}
	if w.State() != bootstrap.StateFailed {
		t.Errorf("state = %s", w.State())
	}
}

func TestSpawn_MissingDir(t *testing.T) {
	_, err := Spawn(context.Background(), Options{
		Dir: filepath.Join(t.TempDir(), "absent"),
	})
	if err == nil {
		t.Fatal("Spawn should fail for a missing module directory")
	}
}

func TestWorker_CloseStopsDispatch(t *testing.T) {
	ctx := context.Background()
	w, err := Spawn(ctx, Options{
		Dir: writeModuleDir(t),
		Load: func(context.Context, *glue.Bindings, string) (workerboot.Module, error) {
			return echoModule{}, nil
		},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after Close")
	}

	if !w.Client().Dead() {
		t.Error("client alive after Close")
	}
}
