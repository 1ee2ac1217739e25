package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
)

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWebSocket_RoutesEachMessage(t *testing.T) {
	deps, store := testDeps(t)
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()

	conn := dialWS(t, srv, testToken)
	for _, msg := range []string{"first", "second"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
		var resp ProcessResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		if resp.InputType != "text" || resp.OriginalText != msg {
			t.Errorf("unexpected response: %+v", resp)
		}
		if resp.Response.Result != "refined: "+msg {
			t.Errorf("result = %v", resp.Response.Result)
		}
	}

	n, err := store.CountInteractions(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("interactions = %d, want 2", n)
	}
}

func TestWebSocket_BlankMessage(t *testing.T) {
	deps, _ := testDeps(t)
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()

	conn := dialWS(t, srv, testToken)
	conn.WriteMessage(websocket.TextMessage, []byte("   "))
	var resp ProcessResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Response.Error == nil || resp.Response.Error.Kind != apperr.EmptyInput {
		t.Errorf("expected empty_input error, got %+v", resp.Response)
	}
}

func TestWebSocket_RequiresToken(t *testing.T) {
	deps, _ := testDeps(t)
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", resp)
	}
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	deps, _ := testDeps(t)
	deps.Token = ""
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		conn.Close()
		t.Fatal("expected upgrade from a foreign origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}
}

func TestWebSocket_AllowsSameOrigin(t *testing.T) {
	deps, _ := testDeps(t)
	deps.Token = ""
	srv := httptest.NewServer(NewHandler(deps))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{srv.URL}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp ProcessResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Response.Result != "refined: hello" {
		t.Errorf("result = %v", resp.Response.Result)
	}
}
