package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/boothsim/internal/agent"
	"github.com/ashureev/boothsim/internal/engine"
	"github.com/ashureev/boothsim/internal/identity"
	"github.com/ashureev/boothsim/internal/rules"
	"github.com/ashureev/boothsim/internal/simulation"
	"github.com/ashureev/boothsim/internal/store"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

const testTrainee = "trn_live"

func newLiveServer(t *testing.T) (*httptest.Server, *simulation.Service, *SessionManager) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "live.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	e := engine.New(rules.Default(), engine.Options{Fallback: agent.NewMockGenerator()})
	svc := simulation.New(e, repo, nil, nil)
	sm := NewSessionManager()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(identity.WithTrainee(req.Context(), testTrainee)))
		})
	})
	r.Get("/ws/sessions/{sessionID}", NewWebSocketHandler(svc, sm, "*", true).ServeHTTP)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc, sm
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + sessionID
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func exchange(t *testing.T, ctx context.Context, conn *websocket.Conn, frame clientFrame) serverFrame {
	t.Helper()
	data, _ := json.Marshal(frame)
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return read(t, ctx, conn)
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) serverFrame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var out serverFrame
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return out
}

func TestLiveTurnAndEnd(t *testing.T) {
	t.Parallel()

	srv, svc, _ := newLiveServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := svc.Start(ctx, testTrainee, simulation.StartRequest{PersonaKey: "curious-developer"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	conn := dial(t, ctx, srv, s.ID)

	if got := exchange(t, ctx, conn, clientFrame{Type: FramePing}); got.Type != FramePong {
		t.Fatalf("ping answered with %q", got.Type)
	}

	got := exchange(t, ctx, conn, clientFrame{Type: FrameTurn, Content: "What brings you by the booth today?"})
	if got.Type != FrameReply || got.Turn == nil || got.Turn.Reply.Text == "" {
		t.Fatalf("unexpected reply frame: %+v", got)
	}

	if got := exchange(t, ctx, conn, clientFrame{Type: FrameTurn, Content: "  "}); got.Type != FrameError || got.Error != "empty_message" {
		t.Fatalf("empty turn frame: %+v", got)
	}

	got = exchange(t, ctx, conn, clientFrame{Type: FrameEnd})
	if got.Type != FrameCompleted || got.Score == nil {
		t.Fatalf("unexpected end frame: %+v", got)
	}
}

func TestLiveRejectsForeignSession(t *testing.T) {
	t.Parallel()

	srv, svc, _ := newLiveServer(t)
	ctx := context.Background()
	s, err := svc.Start(ctx, "trn_someone_else", simulation.StartRequest{PersonaKey: "student"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + s.ID
	_, resp, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("response = %+v", resp)
	}
}

func TestLiveNewConnectionReplacesOld(t *testing.T) {
	t.Parallel()

	srv, svc, sm := newLiveServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := svc.Start(ctx, testTrainee, simulation.StartRequest{PersonaKey: "student"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	first := dial(t, ctx, srv, s.ID)
	if got := exchange(t, ctx, first, clientFrame{Type: FramePing}); got.Type != FramePong {
		t.Fatalf("first ping: %+v", got)
	}
	closed := make(chan error, 1)
	go func() {
		_, _, err := first.Read(ctx)
		closed <- err
	}()

	second := dial(t, ctx, srv, s.ID)
	if got := exchange(t, ctx, second, clientFrame{Type: FramePing}); got.Type != FramePong {
		t.Fatalf("second ping: %+v", got)
	}

	if err := <-closed; websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Fatalf("first connection close status = %v (err %v)", websocket.CloseStatus(err), err)
	}
	if sm.Count() != 1 {
		t.Fatalf("Count = %d, want 1", sm.Count())
	}
}
