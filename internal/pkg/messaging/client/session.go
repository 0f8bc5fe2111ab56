package client

import "sync"

// StaticSession is a Session with a fixed identity that ends on Logout.
type StaticSession struct {
	userID     int64
	credential string
	done       chan struct{}
	once       sync.Once
}

func NewStaticSession(userID int64, credential string) *StaticSession {
	return &StaticSession{userID: userID, credential: credential, done: make(chan struct{})}
}

func (s *StaticSession) UserID() int64         { return s.userID }
func (s *StaticSession) Credential() string    { return s.credential }
func (s *StaticSession) Done() <-chan struct{} { return s.done }

func (s *StaticSession) Logout() {
	s.once.Do(func() { close(s.done) })
}
