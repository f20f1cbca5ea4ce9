package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mmeshcher/lunchbox/internal/metrics"
)

// sentMessage собирает поля sendMessage независимо от того, как клиент их закодировал.
type sentMessage struct {
	ChatID    string
	Text      string
	ParseMode string
}

func readSentMessage(t *testing.T, r *http.Request) sentMessage {
	t.Helper()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			ChatID    json.Number `json:"chat_id"`
			Text      string      `json:"text"`
			ParseMode string      `json:"parse_mode"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		return sentMessage{ChatID: body.ChatID.String(), Text: body.Text, ParseMode: body.ParseMode}
	}

	require.NoError(t, r.ParseMultipartForm(1<<20))
	return sentMessage{
		ChatID:    r.FormValue("chat_id"),
		Text:      r.FormValue("text"),
		ParseMode: r.FormValue("parse_mode"),
	}
}

func TestTelegramSendMessage(t *testing.T) {
	var got sentMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		got = readSentMessage(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	tg, err := newTelegram(srv.URL, "TOKEN", false, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, tg.SendMessage(context.Background(), 42, "<b>hi</b>"))
	assert.Equal(t, sentMessage{ChatID: "42", Text: "<b>hi</b>", ParseMode: "HTML"}, got)
}

func TestTelegramSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	tg, err := newTelegram(srv.URL, "TOKEN", false, zap.NewNop())
	require.NoError(t, err)

	err = tg.SendMessage(context.Background(), 42, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestTelegramSendMessage_DevModeOnlyLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tg, err := newTelegram("http://127.0.0.1:0", "", true, zap.New(core))
	require.NoError(t, err)

	require.NoError(t, tg.SendMessage(context.Background(), 42, "hi"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hi", logs.All()[0].ContextMap()["text"])
}

func TestNewTelegram_RequiresToken(t *testing.T) {
	_, err := NewTelegram("", false, zap.NewNop())
	require.Error(t, err)
}

type recordingSender struct {
	mu   sync.Mutex
	sent map[int64][]string
	err  error
}

func (s *recordingSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[int64][]string)
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return s.err
}

func TestDispatcher_SurvivesRequestCancellation(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 999, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.NotifyUser(ctx, 42, "user message")
	d.NotifyAdmin(ctx, "admin message")
	cancel()
	d.Close()

	assert.Equal(t, []string{"user message"}, sender.sent[42])
	assert.Equal(t, []string{"admin message"}, sender.sent[999])
}

func TestDispatcher_SkipsMissingRecipients(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 0, zap.NewNop(), nil)

	d.NotifyUser(context.Background(), 0, "nobody")
	d.NotifyAdmin(context.Background(), "no admin")
	d.Close()

	assert.Empty(t, sender.sent)
}

func TestDispatcher_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sender := &recordingSender{err: errors.New("bot was blocked")}
	m := metrics.New()
	d := NewDispatcher(sender, 0, zap.New(core), m)

	d.NotifyUser(context.Background(), 42, "hi")
	d.Close()

	require.Equal(t, 1, logs.FilterMessage("send notification").Len())
	entry := logs.All()[0]
	assert.Equal(t, int64(42), entry.ContextMap()["chatID"])
}
