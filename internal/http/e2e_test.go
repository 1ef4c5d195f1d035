package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/db"
	"github.com/jmehdipour/kuritterweight/internal/line"
	"github.com/jmehdipour/kuritterweight/internal/repository"
	"github.com/jmehdipour/kuritterweight/internal/service/weight"
	"github.com/jmehdipour/kuritterweight/internal/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// lineStub records reply texts by reply token.
type lineStub struct {
	mu      sync.Mutex
	replies map[string]string
}

func (l *lineStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ReplyToken string `json:"replyToken"`
		Messages   []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	l.mu.Lock()
	l.replies[body.ReplyToken] = body.Messages[0].Text
	l.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func TestWebhookEndToEnd(t *testing.T) {
	conn, err := db.NewSQLConnection("sqlite", filepath.Join(t.TempDir(), "kw.db"), db.SQLOpts{})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, db.Migrate(context.Background(), conn, "sqlite"))

	stub := &lineStub{replies: map[string]string{}}
	lineSrv := httptest.NewServer(stub)
	defer lineSrv.Close()

	store := repository.NewWeightsRepository(conn, repository.NewOutboxRepository(conn), "weight.recorded")
	svc := weight.New(store, social.Disabled{}, line.NewClient(lineSrv.URL, "tok", 1000), zap.NewNop())
	s := NewServer(testConfig(), Deps{Events: svc})

	rec := do(s, http.MethodPost, "/api/webhook", webhookBody("first"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// records are keyed by (user_id, recorded_at) at millisecond precision
	time.Sleep(5 * time.Millisecond)

	body := `{"events":[{"type":"message","webhookEventId":"second","replyToken":"rt-second",` +
		`"source":{"type":"user","userId":"U1"},"message":{"id":"m2","type":"text","text":"69.5kg"}},` +
		`{"type":"message","webhookEventId":"third","replyToken":"rt-third",` +
		`"source":{"type":"user","userId":"U2"},"message":{"id":"m3","type":"text","text":"heavy"}}]}`
	rec = do(s, http.MethodPost, "/api/webhook", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, map[string]string{
		"rt-first":  "70kg(+70.0) #kuritterweight",
		"rt-second": "69.5kg(-0.5) #kuritterweight",
		"rt-third":  weight.InvalidDataNotice,
	}, stub.replies)

	latest, err := store.Latest(context.Background(), "U1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 69.5, latest.Weight)

	var n int
	require.NoError(t, conn.Get(&n, `SELECT COUNT(*) FROM weights`))
	assert.Equal(t, 2, n)
	require.NoError(t, conn.Get(&n, `SELECT COUNT(*) FROM outbox`))
	assert.Equal(t, 2, n)
}
