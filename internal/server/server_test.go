package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vburojevic/pricewatch/internal/domain"
	"github.com/vburojevic/pricewatch/internal/output"
	"github.com/vburojevic/pricewatch/internal/session"
	"github.com/vburojevic/pricewatch/internal/stream"
)

type fakeController struct {
	snap      domain.Snapshot
	startErr  error
	started   []session.StartRequest
	interval  time.Duration
	stopCalls int
}

func (f *fakeController) Start(req session.StartRequest) (domain.Snapshot, error) {
	f.started = append(f.started, req)
	if f.startErr != nil {
		return f.snap, f.startErr
	}
	f.snap = domain.Snapshot{SessionID: "sess-1", Status: domain.StatusFetching, Target: req.Target}
	return f.snap, nil
}

func (f *fakeController) Stop() bool {
	f.stopCalls++
	if !f.snap.Status.IsActive() {
		return false
	}
	f.snap.Status = domain.StatusStopping
	return true
}

func (f *fakeController) Status() domain.Snapshot {
	if f.snap.Status == "" {
		return domain.IdleSnapshot()
	}
	return f.snap
}

func (f *fakeController) SetInterval(d time.Duration) error {
	if err := session.ValidateInterval(d); err != nil {
		return err
	}
	if !f.snap.Status.IsActive() {
		return session.ErrNotRunning
	}
	f.interval = d
	f.snap.IntervalS = int(d / time.Second)
	return nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) output.ErrorOutput {
	t.Helper()
	var out output.ErrorOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "error", out.Type)
	return out
}

func TestHealthz(t *testing.T) {
	h := New(&fakeController{}, stream.NewHub(), nil).Handler()
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestGetSessionIdle(t *testing.T) {
	h := New(&fakeController{}, stream.NewHub(), nil).Handler()
	rec := do(t, h, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, domain.StatusIdle, snap.Status)
}

func TestStartSession(t *testing.T) {
	ctrl := &fakeController{}
	h := New(ctrl, stream.NewHub(), nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/session",
		`{"url":"https://www.amazon.com/dp/B000","recipient":"me@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ctrl.started, 1)
	assert.Equal(t, session.DefaultInterval, ctrl.started[0].Interval)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "sess-1", snap.SessionID)
}

func TestStartSessionErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "validation",
			err:      &session.ValidationError{Code: session.CodeInvalidRecipient, Message: "bad recipient", Hint: "h"},
			body:     `{"url":"https://x.test","recipient":"nope"}`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  session.CodeInvalidRecipient,
		},
		{
			name:     "already running",
			err:      session.ErrAlreadyRunning,
			body:     `{"url":"https://x.test","recipient":"a@b.co"}`,
			wantCode: http.StatusConflict,
			wantErr:  "ALREADY_RUNNING",
		},
		{
			name:     "malformed body",
			body:     `{"url":`,
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_BODY",
		},
		{
			name:     "unknown field",
			body:     `{"link":"https://x.test"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_BODY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeController{startErr: tt.err}, stream.NewHub(), nil).Handler()
			rec := do(t, h, http.MethodPost, "/api/session", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestStopAlwaysOK(t *testing.T) {
	ctrl := &fakeController{}
	h := New(ctrl, stream.NewHub(), nil).Handler()

	rec := do(t, h, http.MethodDelete, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp StopResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Stopped)

	do(t, h, http.MethodPost, "/api/session", `{"url":"https://x.test","recipient":"a@b.co"}`)
	rec = do(t, h, http.MethodDelete, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Stopped)
	assert.Equal(t, domain.StatusStopping, resp.Session.Status)
}

func TestSetInterval(t *testing.T) {
	ctrl := &fakeController{}
	h := New(ctrl, stream.NewHub(), nil).Handler()

	rec := do(t, h, http.MethodPut, "/api/session/interval", `{"interval_seconds":120}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NOT_RUNNING", decodeError(t, rec).Code)

	do(t, h, http.MethodPost, "/api/session", `{"url":"https://x.test","recipient":"a@b.co"}`)

	rec = do(t, h, http.MethodPut, "/api/session/interval", `{"interval_seconds":5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, session.CodeInvalidInterval, decodeError(t, rec).Code)

	rec = do(t, h, http.MethodPut, "/api/session/interval", `{"interval_seconds":120}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 120*time.Second, ctrl.interval)
}

func TestEventsReplayThenLive(t *testing.T) {
	hub := stream.NewHub()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	hub.Emit(domain.NewLogEvent("s1", at, domain.LevelInfo, domain.OutcomeSessionStart, "-- Tracker started --"))
	hub.Emit(domain.NewLogEvent("s1", at, domain.LevelInfo, domain.OutcomeStartValue, "Starting price: $10.00"))

	srv := httptest.NewServer(New(&fakeController{}, hub, nil).Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() domain.Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var ev domain.Event
		require.NoError(t, conn.ReadJSON(&ev))
		return ev
	}

	assert.Equal(t, domain.OutcomeSessionStart, read().Outcome)
	assert.Equal(t, domain.OutcomeStartValue, read().Outcome)

	hub.Emit(domain.NewLogEvent("s1", at, domain.LevelInfo, domain.OutcomeNoChange, "Check #1"))
	assert.Equal(t, domain.OutcomeNoChange, read().Outcome)

	hub.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:9999", true},
		{"http://app.localhost", true},
		{"http://pricewatch.test", true},
		{"https://evil.example", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://pricewatch.test/api/events", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(r))
		})
	}
}

func TestListenAndServeShutsDown(t *testing.T) {
	s := New(&fakeController{}, stream.NewHub(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	addrCh := make(chan net.Addr, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a })
	}()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr.String() + "/healthz")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
