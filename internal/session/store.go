// ABOUTME: Sharded in-memory session store keyed by chat identity
// ABOUTME: Each shard has its own RWMutex; reads and writes copy sessions

package session

import (
	"hash/fnv"
	"sync"
	"time"
)

// Session is the conversation with one chat.
type Session struct {
	// Identity is the chat the session belongs to (the Matrix room id).
	Identity string
	// Contact is the sender of the most recent message.
	Contact   string
	State     State
	UpdatedAt time.Time
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	if s.State != nil {
		c.State = s.State.Clone()
	}
	return &c
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// Store maps chat identities to sessions.
type Store struct {
	shards []*shard
	now    func() time.Time
}

// NewStore creates a store with the given number of shards (at least one).
func NewStore(shards int) *Store {
	if shards < 1 {
		shards = 1
	}
	s := &Store{shards: make([]*shard, shards), now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return s
}

func (s *Store) shardFor(identity string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Get returns a copy of the session for identity.
func (s *Store) Get(identity string) (*Session, bool) {
	sh := s.shardFor(identity)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.sessions[identity]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// Put stores a copy of sess and stamps its UpdatedAt.
func (s *Store) Put(sess *Session) {
	c := sess.Clone()
	c.UpdatedAt = s.now()

	sh := s.shardFor(sess.Identity)
	sh.mu.Lock()
	sh.sessions[sess.Identity] = c
	sh.mu.Unlock()
}

// Delete removes the session for identity, if any.
func (s *Store) Delete(identity string) {
	sh := s.shardFor(identity)
	sh.mu.Lock()
	delete(sh.sessions, identity)
	sh.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
