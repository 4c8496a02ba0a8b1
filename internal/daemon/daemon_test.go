package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/client"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/gate"
	"github.com/matheus3301/parley/internal/lock"
	"github.com/matheus3301/parley/internal/outbox"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/matheus3301/parley/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// shortHome points PARLEY_HOME at a short /tmp directory so socket paths
// stay under the 104-char Unix socket limit on macOS.
func shortHome(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "parley-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv(profile.HomeEnv, dir)
	return dir
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.OAuth = nil
	return cfg
}

func startDaemon(t *testing.T, name string) *fx.App {
	t.Helper()
	app := fx.New(Module(Params{Profile: name, Config: testConfig()}), fx.NopLogger)
	if err := app.Err(); err != nil {
		t.Fatalf("build daemon: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Stop(ctx)
	})
	return app
}

func dial(t *testing.T, name string) *client.Client {
	t.Helper()
	c, err := client.Dial(profile.SocketPath(name), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDaemonEndToEnd(t *testing.T) {
	shortHome(t)
	startDaemon(t, "e2e")
	ctx := context.Background()

	if _, err := os.Stat(profile.SocketPath("e2e")); err != nil {
		t.Fatalf("socket missing: %v", err)
	}
	info, err := os.Stat(profile.SecretPath("e2e"))
	if err != nil {
		t.Fatalf("token secret not persisted: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("secret mode = %v, want 0600", info.Mode().Perm())
	}

	// Ana runs the full client stack: gate, controller and outbox.
	anaConn := dial(t, "e2e")
	ana, err := anaConn.Register(ctx, "Ana", "ana@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	anaConn.SetToken("")

	b := bus.New()
	sender := outbox.NewSender(anaConn, b, nil, 0)
	sender.Start(ctx)
	t.Cleanup(sender.Stop)

	g := gate.New(anaConn, b, nil)
	ctrl := sync.NewController(anaConn, anaConn, sender, anaConn, sync.Settings{
		SeenRetention: 30 * time.Second,
		SeenBuffer:    256,
	}, b, nil)
	ctrl.Attach(g)
	t.Cleanup(ctrl.Close)

	if _, err := g.SignIn(ctx, "ana@example.com", "correct horse"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if g.Current() != gate.Authenticated {
		t.Fatalf("gate = %s, want authenticated", g.Current())
	}
	r := ctrl.Reconciler()
	waitFor(t, "initial snapshot", r.Ready)
	if n := len(r.Projection()); n != 0 {
		t.Fatalf("projection = %d items, want 0", n)
	}

	// Bea uses the plain client and watches her own channel.
	bea := dial(t, "e2e")
	beaSession, err := bea.Register(ctx, "Bea", "bea@example.com", "battery staple")
	if err != nil {
		t.Fatal(err)
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	beaEvents, err := bea.Subscribe(watchCtx, beaSession.UserID)
	if err != nil {
		t.Fatal(err)
	}

	conv, err := bea.CreateDirectConversation(ctx, beaSession.UserID, ana.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bea.SendMessage(ctx, conv.ID, "hi ana", ""); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "unread message on ana's side", func() bool {
		items := r.Projection()
		return len(items) == 1 && items[0].Unread && items[0].Preview == "hi ana"
	})

	if err := r.MarkSeen(ctx, conv.ID); err != nil {
		t.Fatal(err)
	}
	if r.Projection()[0].Unread {
		t.Error("conversation still unread after local mark")
	}

	var seen *chat.Event
	timeout := time.After(3 * time.Second)
	for seen == nil {
		select {
		case evt, ok := <-beaEvents:
			if !ok {
				t.Fatal("bea's stream closed")
			}
			if evt.Type == chat.MessageSeenUpdated {
				seen = &evt
			}
		case <-timeout:
			t.Fatal("bea never saw the seen update")
		}
	}
	if seen.ConversationID != conv.ID || len(seen.SeenBy) == 0 {
		t.Errorf("seen event = %+v", seen)
	}

	st, err := bea.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Profile != "e2e" || st.Users != 2 || st.Conversations != 1 || st.Messages != 1 {
		t.Errorf("status = %+v", st)
	}

	if err := g.SignOut(); err != nil {
		t.Fatal(err)
	}
	if ctrl.Open() {
		t.Error("controller still open after sign out")
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	shortHome(t)
	startDaemon(t, "solo")

	app := fx.New(Module(Params{Profile: "solo", Config: testConfig()}), fx.NopLogger)
	err := app.Err()
	if err == nil {
		t.Fatal("second daemon started on a locked profile")
	}
	owner, readErr := lock.ReadOwner(profile.Dir("solo"))
	if readErr != nil {
		t.Fatal(readErr)
	}
	if owner.PID != os.Getpid() || owner.Profile != "solo" {
		t.Errorf("owner = %+v", owner)
	}
}

func TestTokensSurviveRestart(t *testing.T) {
	shortHome(t)
	ctx := context.Background()

	app := startDaemon(t, "restart")
	c := dial(t, "restart")
	s, err := c.Register(ctx, "Ana", "ana@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(profile.SocketPath("restart")); !os.IsNotExist(err) {
		t.Errorf("socket left behind after stop: %v", err)
	}

	startDaemon(t, "restart")
	c2 := dial(t, "restart")
	resumed, err := c2.Resume(ctx, s.Token)
	if err != nil {
		t.Fatalf("resume after restart: %v", err)
	}
	if resumed.UserID != s.UserID {
		t.Errorf("resumed user = %s, want %s", resumed.UserID, s.UserID)
	}
}

// TestFxModuleWiring verifies the fx dependency graph resolves without errors.
func TestFxModuleWiring(t *testing.T) {
	shortHome(t)
	if err := fx.ValidateApp(Module(Params{Profile: "fxtest", Config: testConfig()})); err != nil {
		t.Fatalf("fx graph: %v", err)
	}
}

func TestSocketPathPrecedence(t *testing.T) {
	home := shortHome(t)
	cfg := testConfig()

	if got := SocketPath(Params{Profile: "p"}, cfg); got != filepath.Join(home, "profiles", "p", "daemon.sock") {
		t.Errorf("default socket = %s", got)
	}
	cfg.Server.Socket = "/tmp/configured.sock"
	if got := SocketPath(Params{Profile: "p"}, cfg); got != "/tmp/configured.sock" {
		t.Errorf("configured socket = %s", got)
	}
	if got := SocketPath(Params{Profile: "p", SocketPath: "/tmp/x.sock"}, cfg); got != "/tmp/x.sock" {
		t.Errorf("override socket = %s", got)
	}
}

func TestLoadSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jwt.secret")
	logger := zap.NewNop()

	got, err := loadSecret("configured", path, logger)
	if err != nil || string(got) != "configured" {
		t.Fatalf("configured secret = %q, %v", got, err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("configured secret should not be written to disk")
	}

	first, err := loadSecret("", path, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != secretBytes {
		t.Errorf("secret length = %d", len(first))
	}
	again, err := loadSecret("", path, logger)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(first) {
		t.Error("persisted secret not reused")
	}

	if err := os.WriteFile(path, []byte("zz"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSecret("", path, logger); err == nil {
		t.Error("expected error for corrupt secret")
	}
}
