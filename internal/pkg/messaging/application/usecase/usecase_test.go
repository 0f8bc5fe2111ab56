package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daoob/internal/auth"
	messaging "daoob/internal/pkg/messaging/application/domain"
	userRepository "daoob/internal/repository/port"
)

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newSendUC(repo *memMessageRepo, users *memUsers, d Deliverer, l RateLimiter) *SendMessageUseCase {
	uc := NewSendMessageUseCase(repo, users, d, l, 0, zerolog.Nop())
	uc.now = fixedClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	return uc
}

func TestSendMessagePersistsThenDelivers(t *testing.T) {
	repo := newMemMessageRepo()
	d := newRecordingDeliverer(2)
	uc := newSendUC(repo, newMemUsers(1, 2), d, nil)

	out, err := uc.Execute(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: " Hi "})
	require.NoError(t, err)
	assert.True(t, out.Delivered)
	assert.Equal(t, int64(1), out.Message.ID)
	assert.Equal(t, " Hi ", out.Message.Content)
	assert.Equal(t, 1, repo.count())

	require.Len(t, d.pushed[2], 1)
	var env messaging.Envelope
	require.NoError(t, json.Unmarshal(d.pushed[2][0], &env))
	assert.Equal(t, messaging.EnvelopeMessage, env.Type)
	assert.Equal(t, int64(1), env.Sender)
	assert.Equal(t, int64(2), env.Receiver)
	assert.Equal(t, " Hi ", env.Content)
	assert.Equal(t, out.Message.ID, env.ID)
	assert.Empty(t, d.pushed[1], "sender is not echoed")
}

func TestSendMessageToOfflineReceiverIsStoredOnly(t *testing.T) {
	repo := newMemMessageRepo()
	d := newRecordingDeliverer()
	uc := newSendUC(repo, newMemUsers(1, 2), d, nil)

	out, err := uc.Execute(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "Hi"})
	require.NoError(t, err)
	assert.False(t, out.Delivered)
	assert.Equal(t, 1, repo.count())
	assert.Zero(t, d.total())
}

func TestSendMessageRejections(t *testing.T) {
	cases := []struct {
		name string
		in   SendMessageInput
		want error
	}{
		{"unknown receiver", SendMessageInput{SenderID: 1, ReceiverID: 99, Content: "Hi"}, messaging.ErrUnknownReceiver},
		{"unknown sender", SendMessageInput{SenderID: 98, ReceiverID: 2, Content: "Hi"}, messaging.ErrUnknownSender},
		{"self", SendMessageInput{SenderID: 1, ReceiverID: 1, Content: "Hi"}, messaging.ErrSelfMessage},
		{"empty", SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "   "}, messaging.ErrEmptyContent},
		{"too large", SendMessageInput{SenderID: 1, ReceiverID: 2, Content: strings.Repeat("x", messaging.DefaultMaxContentBytes+1)}, messaging.ErrContentTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemMessageRepo()
			d := newRecordingDeliverer(1, 2, 99)
			uc := newSendUC(repo, newMemUsers(1, 2), d, nil)

			_, err := uc.Execute(context.Background(), tc.in)
			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, repo.count(), "nothing stored")
			assert.Zero(t, d.total(), "nothing pushed")
		})
	}
}

func TestSendMessagePersistenceFailureSkipsPush(t *testing.T) {
	repo := newMemMessageRepo()
	repo.failing = true
	d := newRecordingDeliverer(2)
	uc := newSendUC(repo, newMemUsers(1, 2), d, nil)

	_, err := uc.Execute(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "Hi"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Zero(t, d.total())
}

func TestSendMessageUserLookupFailure(t *testing.T) {
	users := newMemUsers(1, 2)
	users.failing = true
	uc := newSendUC(newMemMessageRepo(), users, nil, nil)

	_, err := uc.Execute(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "Hi"})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestSendMessageRateLimit(t *testing.T) {
	repo := newMemMessageRepo()
	uc := newSendUC(repo, newMemUsers(1, 2), nil, stubLimiter{allowed: false})
	_, err := uc.Execute(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "Hi"})
	assert.ErrorIs(t, err, messaging.ErrRateLimited)
	assert.Zero(t, repo.count())

	// a broken limiter fails open
	uc = newSendUC(repo, newMemUsers(1, 2), nil, stubLimiter{allowed: true, err: errBoom})
	_, err = uc.Execute(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "Hi"})
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.count())
}

func TestAdmittedSendIsNotChargedAgain(t *testing.T) {
	repo := newMemMessageRepo()
	limiter := &countingLimiter{limit: 1}
	uc := newSendUC(repo, newMemUsers(1, 2), nil, limiter)
	in := SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "Hi"}

	_, err := uc.Admit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, limiter.calls)
	assert.Zero(t, repo.count(), "admit never stores")

	// a failed write followed by retries of the admitted request
	in.Admitted = true
	repo.failing = true
	for i := 0; i < 3; i++ {
		_, err = uc.Execute(context.Background(), in)
		assert.ErrorIs(t, err, ErrPersistence)
	}
	repo.failing = false
	_, err = uc.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, limiter.calls)
	assert.Equal(t, 1, repo.count())

	// the quota was spent by the admitted send
	_, err = uc.Admit(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "again"})
	assert.ErrorIs(t, err, messaging.ErrRateLimited)
}

func TestAdmitRejectsUnknownReceiver(t *testing.T) {
	limiter := &countingLimiter{limit: 10}
	uc := newSendUC(newMemMessageRepo(), newMemUsers(1, 2), nil, limiter)

	_, err := uc.Admit(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 9999, Content: "x"})
	assert.ErrorIs(t, err, messaging.ErrUnknownReceiver)
	assert.Zero(t, limiter.calls)
}

func TestSendMessagePreservesPairOrder(t *testing.T) {
	repo := newMemMessageRepo()
	d := newRecordingDeliverer(2)
	uc := newSendUC(repo, newMemUsers(1, 2), d, nil)

	for _, content := range []string{"one", "two", "three"} {
		_, err := uc.Execute(context.Background(), SendMessageInput{SenderID: 1, ReceiverID: 2, Content: content})
		require.NoError(t, err)
	}

	thread, err := NewGetThreadUseCase(repo, newMemUsers(1, 2)).Execute(context.Background(), GetThreadInput{UserID: 2, CounterpartyID: 1})
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{thread[0].Content, thread[1].Content, thread[2].Content})

	require.Len(t, d.pushed[2], 3)
	for i, want := range []string{"one", "two", "three"} {
		var env messaging.Envelope
		require.NoError(t, json.Unmarshal(d.pushed[2][i], &env))
		assert.Equal(t, want, env.Content)
	}
}

func TestListConversations(t *testing.T) {
	repo := newMemMessageRepo()
	users := newMemUsers(1, 2, 3)
	presence := newRecordingDeliverer(3)
	send := newSendUC(repo, users, nil, nil)
	ctx := context.Background()

	for _, in := range []SendMessageInput{
		{SenderID: 1, ReceiverID: 2, Content: "Hi"},
		{SenderID: 3, ReceiverID: 2, Content: "Your quotation is ready"},
		{SenderID: 2, ReceiverID: 3, Content: "Thanks"},
	} {
		_, err := send.Execute(ctx, in)
		require.NoError(t, err)
	}

	uc := NewListConversationsUseCase(repo, users, presence)
	views, err := uc.Execute(ctx, ListConversationsInput{UserID: 2})
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, int64(3), views[0].Counterparty.ID)
	assert.Equal(t, "Thanks", views[0].LastMessage.Content)
	assert.Equal(t, 1, views[0].UnreadCount)
	assert.True(t, views[0].Online)

	assert.Equal(t, int64(1), views[1].Counterparty.ID)
	assert.Equal(t, 1, views[1].UnreadCount)
	assert.False(t, views[1].Online)

	again, err := uc.Execute(ctx, ListConversationsInput{UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, views, again)
}

func TestListConversationsEmpty(t *testing.T) {
	views, err := NewListConversationsUseCase(newMemMessageRepo(), newMemUsers(1), nil).Execute(context.Background(), ListConversationsInput{UserID: 1})
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestMarkReadClearsUnread(t *testing.T) {
	repo := newMemMessageRepo()
	users := newMemUsers(1, 2)
	send := newSendUC(repo, users, nil, nil)
	ctx := context.Background()
	_, err := send.Execute(ctx, SendMessageInput{SenderID: 1, ReceiverID: 2, Content: "Hi"})
	require.NoError(t, err)

	mark := NewMarkReadUseCase(repo, users)
	mark.now = func() time.Time { return time.Date(2026, 5, 1, 13, 0, 0, 0, time.UTC) }
	_, err = mark.Execute(ctx, MarkReadInput{UserID: 2, CounterpartyID: 1})
	require.NoError(t, err)

	views, err := NewListConversationsUseCase(repo, users, nil).Execute(ctx, ListConversationsInput{UserID: 2})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Zero(t, views[0].UnreadCount)
}

func TestCounterpartyValidation(t *testing.T) {
	repo := newMemMessageRepo()
	users := newMemUsers(1, 2)
	ctx := context.Background()

	_, err := NewGetThreadUseCase(repo, users).Execute(ctx, GetThreadInput{UserID: 1, CounterpartyID: 42})
	assert.ErrorIs(t, err, messaging.ErrUnknownPeer)

	_, err = NewGetThreadUseCase(repo, users).Execute(ctx, GetThreadInput{UserID: 1, CounterpartyID: 1})
	assert.ErrorIs(t, err, messaging.ErrSelfMessage)

	_, err = NewMarkReadUseCase(repo, users).Execute(ctx, MarkReadInput{UserID: 1, CounterpartyID: 0})
	assert.ErrorIs(t, err, messaging.ErrUnknownPeer)

	thread, err := NewGetThreadUseCase(repo, users).Execute(ctx, GetThreadInput{UserID: 1, CounterpartyID: 2})
	require.NoError(t, err)
	assert.NotNil(t, thread)
	assert.Empty(t, thread)

	users.failing = true
	_, err = NewGetThreadUseCase(repo, users).Execute(ctx, GetThreadInput{UserID: 1, CounterpartyID: 2})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestAuthenticate(t *testing.T) {
	users := newMemUsers(1, 2)
	ctx := context.Background()

	trust := NewAuthenticateUseCase(auth.TrustVerifier{}, users)
	u, err := trust.Execute(ctx, AuthenticateInput{ClaimedUserID: 1, Credential: "1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = trust.Execute(ctx, AuthenticateInput{ClaimedUserID: 1, Credential: "2"})
	assert.ErrorIs(t, err, auth.ErrIdentityMismatch)

	_, err = trust.Execute(ctx, AuthenticateInput{ClaimedUserID: 7, Credential: "7"})
	assert.ErrorIs(t, err, userRepository.ErrUserNotFound)

	v := auth.NewJWTVerifier("test-secret")
	token, err := v.Sign(2, userRepository.UserTypeVendor, time.Minute)
	require.NoError(t, err)
	jwtUC := NewAuthenticateUseCase(v, users)
	u, err = jwtUC.Execute(ctx, AuthenticateInput{ClaimedUserID: 2, Credential: token})
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.ID)

	_, err = jwtUC.Execute(ctx, AuthenticateInput{ClaimedUserID: 1, Credential: token})
	assert.ErrorIs(t, err, auth.ErrIdentityMismatch)
}
