package weight

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/kuritterweight/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu        sync.Mutex
	latest    map[string]*model.WeightRecord
	saved     []model.WeightRecord
	previous  []*float64
	latestErr error
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{latest: map[string]*model.WeightRecord{}}
}

func (f *fakeStore) Latest(ctx context.Context, userID string) (*model.WeightRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest[userID], nil
}

func (f *fakeStore) Save(ctx context.Context, userID string, weight float64, previous *float64) (model.WeightRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return model.WeightRecord{}, f.saveErr
	}
	rec := model.WeightRecord{ID: "rec", UserID: userID, Weight: weight, RecordedAt: time.Now().UTC()}
	f.saved = append(f.saved, rec)
	f.previous = append(f.previous, previous)
	return rec, nil
}

type fakePoster struct {
	mu    sync.Mutex
	posts []string
	err   error
}

func (f *fakePoster) Post(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, text)
	if f.err != nil {
		return "", f.err
	}
	return "1234", nil
}

type reply struct {
	token string
	text  string
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []reply
	err     error
}

func (f *fakeReplier) Reply(ctx context.Context, replyToken, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.replies = append(f.replies, reply{token: replyToken, text: text})
	return nil
}

func textEvent(userID, text string) model.InboundEvent {
	return model.InboundEvent{
		Type:       model.EventTypeMessage,
		ReplyToken: "reply-" + userID,
		Source:     &model.EventSource{Type: "user", UserID: userID},
		Message:    &model.EventMessage{ID: "m1", Type: model.MessageTypeText, Text: text},
	}
}

func newTestService() (*Service, *fakeStore, *fakePoster, *fakeReplier) {
	store, poster, replier := newFakeStore(), &fakePoster{}, &fakeReplier{}
	return New(store, poster, replier, zap.NewNop()), store, poster, replier
}

func TestHandleEventRecordsWeight(t *testing.T) {
	svc, store, poster, replier := newTestService()
	store.latest["U1"] = &model.WeightRecord{UserID: "U1", Weight: 70.0}

	outcome, err := svc.HandleEvent(context.Background(), textEvent("U1", "71.5"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	want := "71.5kg(+1.5) #kuritterweight"
	assert.Equal(t, []string{want}, poster.posts)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "U1", store.saved[0].UserID)
	assert.Equal(t, 71.5, store.saved[0].Weight)
	require.NotNil(t, store.previous[0])
	assert.Equal(t, 70.0, *store.previous[0])
	assert.Equal(t, []reply{{token: "reply-U1", text: want}}, replier.replies)
}

func TestHandleEventFirstWeighInUsesZeroBaseline(t *testing.T) {
	svc, store, _, replier := newTestService()

	_, err := svc.HandleEvent(context.Background(), textEvent("U1", "65"))
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.Nil(t, store.previous[0])
	assert.Equal(t, "65kg(+65.0) #kuritterweight", replier.replies[0].text)
}

func TestHandleEventInvalidText(t *testing.T) {
	svc, store, poster, replier := newTestService()

	outcome, err := svc.HandleEvent(context.Background(), textEvent("U1", "hello"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome)

	assert.Empty(t, store.saved)
	assert.Empty(t, poster.posts)
	assert.Equal(t, []reply{{token: "reply-U1", text: InvalidDataNotice}}, replier.replies)
}

func TestHandleEventIgnoresUnsupported(t *testing.T) {
	svc, store, poster, replier := newTestService()

	noUser := textEvent("", "70")
	sticker := textEvent("U1", "")
	sticker.Message.Type = model.MessageTypeSticker
	follow := model.InboundEvent{Type: model.EventTypeFollow, Source: &model.EventSource{UserID: "U1"}}
	noSource := textEvent("U1", "70")
	noSource.Source = nil

	for _, ev := range []model.InboundEvent{noUser, sticker, follow, noSource} {
		outcome, err := svc.HandleEvent(context.Background(), ev)
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, outcome)
	}

	assert.Empty(t, store.saved)
	assert.Empty(t, poster.posts)
	assert.Empty(t, replier.replies)
}

func TestHandleEventPostFailureDoesNotBlock(t *testing.T) {
	svc, store, poster, replier := newTestService()
	poster.err = errors.New("x api down")

	outcome, err := svc.HandleEvent(context.Background(), textEvent("U1", "70"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	assert.Len(t, poster.posts, 1)
	assert.Len(t, store.saved, 1)
	assert.Len(t, replier.replies, 1)
}

func TestHandleEventStoreFailures(t *testing.T) {
	t.Run("latest", func(t *testing.T) {
		svc, store, poster, replier := newTestService()
		store.latestErr = errors.New("boom")

		outcome, err := svc.HandleEvent(context.Background(), textEvent("U1", "70"))
		assert.ErrorIs(t, err, store.latestErr)
		assert.Equal(t, OutcomeFailed, outcome)
		assert.Empty(t, poster.posts)
		assert.Empty(t, replier.replies)
	})

	t.Run("save", func(t *testing.T) {
		svc, store, poster, replier := newTestService()
		store.saveErr = errors.New("boom")

		outcome, err := svc.HandleEvent(context.Background(), textEvent("U1", "70"))
		assert.ErrorIs(t, err, store.saveErr)
		assert.Equal(t, OutcomeFailed, outcome)
		// the post happens before the write and is not rolled back
		assert.Len(t, poster.posts, 1)
		assert.Empty(t, replier.replies)
	})
}

func TestHandleEventReplyFailure(t *testing.T) {
	svc, store, _, replier := newTestService()
	replier.err = errors.New("line 500")

	outcome, err := svc.HandleEvent(context.Background(), textEvent("U1", "70"))
	assert.ErrorIs(t, err, replier.err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Len(t, store.saved, 1)
}
