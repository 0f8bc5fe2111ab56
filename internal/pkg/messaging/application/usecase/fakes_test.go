package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	messaging "daoob/internal/pkg/messaging/application/domain"
	userRepository "daoob/internal/repository/port"
)

var errBoom = errors.New("boom")

type memMessageRepo struct {
	mu      sync.Mutex
	msgs    []messaging.Message
	markers map[int64]map[int64]time.Time
	failing bool
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{markers: make(map[int64]map[int64]time.Time)}
}

func (r *memMessageRepo) SaveMessage(_ context.Context, m messaging.Message) (messaging.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return messaging.Message{}, errBoom
	}
	m.ID = int64(len(r.msgs) + 1)
	r.msgs = append(r.msgs, m)
	return m, nil
}

func (r *memMessageRepo) ListMessagesForUser(_ context.Context, userID int64) ([]messaging.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return nil, errBoom
	}
	var out []messaging.Message
	for _, m := range r.msgs {
		if m.Involves(userID) {
			out = append(out, m)
		}
	}
	messaging.SortThread(out)
	return out, nil
}

func (r *memMessageRepo) GetThread(_ context.Context, a, b int64) ([]messaging.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return nil, errBoom
	}
	return messaging.Thread(a, b, r.msgs), nil
}

func (r *memMessageRepo) ReadMarkers(_ context.Context, userID int64) (map[int64]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]time.Time)
	for k, v := range r.markers[userID] {
		out[k] = v
	}
	return out, nil
}

func (r *memMessageRepo) MarkRead(_ context.Context, userID, counterpartyID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errBoom
	}
	if r.markers[userID] == nil {
		r.markers[userID] = make(map[int64]time.Time)
	}
	if at.After(r.markers[userID][counterpartyID]) {
		r.markers[userID][counterpartyID] = at
	}
	return nil
}

func (r *memMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type memUsers struct {
	byID    map[int64]userRepository.User
	failing bool
}

func newMemUsers(ids ...int64) *memUsers {
	u := &memUsers{byID: make(map[int64]userRepository.User)}
	for _, id := range ids {
		u.byID[id] = userRepository.User{ID: id, Username: "user" + string(rune('a'+id)), UserType: userRepository.UserTypeClient}
	}
	return u
}

func (u *memUsers) FindByID(_ context.Context, id int64) (*userRepository.User, error) {
	if u.failing {
		return nil, errBoom
	}
	user, ok := u.byID[id]
	if !ok {
		return nil, userRepository.ErrUserNotFound
	}
	return &user, nil
}

func (u *memUsers) FindByIDs(_ context.Context, ids []int64) (map[int64]userRepository.User, error) {
	if u.failing {
		return nil, errBoom
	}
	out := make(map[int64]userRepository.User)
	for _, id := range ids {
		if user, ok := u.byID[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

func (u *memUsers) Create(_ context.Context, user userRepository.User) (int64, error) {
	user.ID = int64(len(u.byID) + 1)
	u.byID[user.ID] = user
	return user.ID, nil
}

type recordingDeliverer struct {
	mu     sync.Mutex
	online map[int64]bool
	pushed map[int64][][]byte
}

func newRecordingDeliverer(online ...int64) *recordingDeliverer {
	d := &recordingDeliverer{online: make(map[int64]bool), pushed: make(map[int64][][]byte)}
	for _, id := range online {
		d.online[id] = true
	}
	return d
}

func (d *recordingDeliverer) Deliver(userID int64, payload []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.online[userID] {
		return false
	}
	d.pushed[userID] = append(d.pushed[userID], payload)
	return true
}

func (d *recordingDeliverer) IsOnline(_ context.Context, userID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online[userID]
}

func (d *recordingDeliverer) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, p := range d.pushed {
		n += len(p)
	}
	return n
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s stubLimiter) Allow(context.Context, int64) (bool, error) { return s.allowed, s.err }

// countingLimiter allows the first limit calls.
type countingLimiter struct {
	mu    sync.Mutex
	limit int
	calls int
}

func (l *countingLimiter) Allow(context.Context, int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.calls <= l.limit, nil
}
