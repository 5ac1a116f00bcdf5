package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/DineCall/callstate"
	"github.com/room4-2/DineCall/twiml"
)

type fakeTurns struct {
	lastSID       string
	lastUtterance string
}

func (f *fakeTurns) NextTurn(ctx context.Context, callSID, utterance string) *twiml.Response {
	f.lastSID, f.lastUtterance = callSID, utterance
	return twiml.SpeakAndListen("Noted, one moment please.", "woman", "https://example.com/gather")
}

type fakeStatus struct {
	calls []string
}

func (f *fakeStatus) OnCallTerminal(ctx context.Context, callSID, vendorStatus string) {
	f.calls = append(f.calls, callSID+"/"+vendorStatus)
}

func newTestServer(t *testing.T) (*Server, *callstate.Store, *fakeTurns, *fakeStatus) {
	t.Helper()
	store := callstate.NewStore(nil, time.Hour)
	turns := &fakeTurns{}
	status := &fakeStatus{}
	return NewServer(0, store, turns, status, "woman"), store, turns, status
}

func registerCall(t *testing.T, store *callstate.Store, sid string) {
	t.Helper()
	err := store.Register(context.Background(), sid, &callstate.Context{
		RequestID:       "req-1",
		ChannelID:       "chan-1",
		RestaurantPhone: "+15552223333",
		PartySize:       2,
		CustomerName:    "Dana",
	})
	require.NoError(t, err)
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestGatherRunsTurn(t *testing.T) {
	srv, store, turns, _ := newTestServer(t)
	registerCall(t, store, "CA1")

	w := postForm(t, srv.Handler(), "/gather", url.Values{
		"CallSid":      {"CA1"},
		"SpeechResult": {"We have a table at seven thirty."},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<Gather")
	assert.Contains(t, w.Body.String(), "Noted, one moment please.")
	assert.Equal(t, "CA1", turns.lastSID)
	assert.Equal(t, "We have a table at seven thirty.", turns.lastUtterance)
}

func TestGatherUnknownCallHangsUp(t *testing.T) {
	srv, _, turns, _ := newTestServer(t)

	w := postForm(t, srv.Handler(), "/gather", url.Values{
		"CallSid":      {"CA404"},
		"SpeechResult": {"Hello?"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lost track of this call")
	assert.Contains(t, w.Body.String(), "<Hangup")
	assert.NotContains(t, w.Body.String(), "<Gather")
	assert.Empty(t, turns.lastSID)
}

func TestGatherRejectsGet(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/gather", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStatusForwardsAndAlwaysSucceeds(t *testing.T) {
	srv, store, _, status := newTestServer(t)
	registerCall(t, store, "CA2")

	w := postForm(t, srv.Handler(), "/status", url.Values{
		"CallSid":    {"CA2"},
		"CallStatus": {"completed"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, []string{"CA2/completed"}, status.calls)

	// Unknown SIDs still get a 200.
	w = postForm(t, srv.Handler(), "/status", url.Values{
		"CallSid":    {"CA404"},
		"CallStatus": {"failed"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthReportsActiveCalls(t *testing.T) {
	srv, store, _, _ := newTestServer(t)
	registerCall(t, store, "CA3")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","activeCalls":1}`, w.Body.String())
}

func TestMonitorStreamsTranscript(t *testing.T) {
	srv, store, _, _ := newTestServer(t)
	registerCall(t, store, "CA4")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/monitor/CA4"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, store.AppendTranscript(context.Background(), "CA4", callstate.SpeakerAssistant, "Hi, I'd like to book a table."))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var line callstate.TranscriptLine
	require.NoError(t, sonic.Unmarshal(payload, &line))
	assert.Equal(t, callstate.SpeakerAssistant, line.Speaker)
	assert.Equal(t, "Hi, I'd like to book a table.", line.Text)
}

func TestMonitorUnknownCall(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/monitor/CA404", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
