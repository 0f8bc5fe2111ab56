package messaging

import (
	"sort"
	"time"
)

// Conversation is the per-counterparty view of a user's message history.
// It is never stored; Summarize derives it on every read.
type Conversation struct {
	CounterpartyID int64
	LastMessage    *Message
	UnreadCount    int
}

// LastActivity is the timestamp of the latest message, zero when there is none.
func (c Conversation) LastActivity() time.Time {
	if c.LastMessage == nil {
		return time.Time{}
	}
	return c.LastMessage.CreatedAt
}

// Summarize groups msgs by counterparty of userID. A received message is
// unread when it is newer than the read marker for its counterparty; with no
// marker every received message is unread. The result is ordered most recent
// first, ties broken by counterparty id so repeated calls agree.
func Summarize(userID int64, msgs []Message, lastRead map[int64]time.Time) []Conversation {
	byPeer := make(map[int64]*Conversation)
	for i := range msgs {
		m := msgs[i]
		if !m.Involves(userID) || m.SenderID == m.ReceiverID {
			continue
		}
		peer := m.Counterparty(userID)
		conv, ok := byPeer[peer]
		if !ok {
			conv = &Conversation{CounterpartyID: peer}
			byPeer[peer] = conv
		}
		if conv.LastMessage == nil || conv.LastMessage.Before(m) {
			last := m
			conv.LastMessage = &last
		}
		if m.ReceiverID == userID {
			marker, seen := lastRead[peer]
			if !seen || m.CreatedAt.After(marker) {
				conv.UnreadCount++
			}
		}
	}

	out := make([]Conversation, 0, len(byPeer))
	for _, conv := range byPeer {
		out = append(out, *conv)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastActivity(), out[j].LastActivity()
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].CounterpartyID < out[j].CounterpartyID
	})
	return out
}

// Thread filters msgs down to the exchange between a and b, ascending.
func Thread(a, b int64, msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	SortThread(out)
	return out
}
