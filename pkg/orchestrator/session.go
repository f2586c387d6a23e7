package orchestrator

import "sync"

// session holds the single-writer lock for one session id. Nothing else
// about a session is cached here — the snapshot itself always comes from
// the checkpoint store, so a restart loses no in-flight state.
type session struct {
	mu sync.Mutex
}

// sessionRegistry hands out one *session per session id, creating it on
// first use. It never evicts: a long-running process accumulates one
// mutex per session it has ever seen, bounded by the number of distinct
// sessions rather than request volume.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func (r *sessionRegistry) acquire(sessionID string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions == nil {
		r.sessions = map[string]*session{}
	}
	sess, ok := r.sessions[sessionID]
	if !ok {
		sess = &session{}
		r.sessions[sessionID] = sess
	}
	return sess
}
