package ws

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type portFunc int

func (p portFunc) ListenPort() int { return int(p) }

func TestAttachRoutesUpgradesToAdmission(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	admission := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	var logs bytes.Buffer
	srv := &http.Server{Handler: mux}
	Attach(srv, admission, portFunc(3001), zerolog.New(&logs))

	for _, path := range []string{"/", "/healthz", "/some/deep/path"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusTeapot {
			t.Fatalf("upgrade on %s: expected admission, got %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("plain request not passed through: %d %q", rec.Code, rec.Body.String())
	}

	out := logs.String()
	if !strings.Contains(out, `"port":3001`) || !strings.Contains(out, "websocket server started") {
		t.Fatalf("unexpected startup log %q", out)
	}
}

func TestAttachDefaultsToDefaultServeMux(t *testing.T) {
	srv := &http.Server{}
	Attach(srv, http.NotFoundHandler(), portFunc(0), zerolog.Nop())
	if srv.Handler == nil {
		t.Fatalf("expected handler to be installed")
	}
}
