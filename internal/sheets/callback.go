package sheets

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registry is the table of in-flight callback requests, keyed by callback token.
// Each entry completes at most once; late deliveries after a timeout are dropped.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*Pending
}

// Pending is the single-use completion handle of one callback request.
type Pending struct {
	token  string
	done   chan []byte
	once   sync.Once
	cancel context.CancelFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]*Pending)}
}

// NewToken returns a fresh callback name that is a valid script identifier.
func NewToken() string {
	return "cb_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Register adds a pending entry for token. The returned release func removes
// the entry and cancels the load bound to it; it is safe to call more than once
// and must be deferred by the caller.
func (r *Registry) Register(token string) (*Pending, func()) {
	p := &Pending{token: token, done: make(chan []byte, 1)}

	r.mu.Lock()
	r.pending[token] = p
	r.mu.Unlock()

	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			r.mu.Lock()
			if r.pending[token] == p {
				delete(r.pending, token)
			}
			cancel := p.cancel
			r.mu.Unlock()
			if cancel != nil {
				cancel()
			}
		})
	}
	return p, release
}

// bind attaches the cancel func of the load serving this entry.
func (r *Registry) bind(p *Pending, cancel context.CancelFunc) {
	r.mu.Lock()
	p.cancel = cancel
	r.mu.Unlock()
}

// Resolve delivers payload to the entry registered under token.
// Returns false when no entry is pending or it already completed.
func (r *Registry) Resolve(token string, payload []byte) bool {
	r.mu.Lock()
	p, ok := r.pending[token]
	r.mu.Unlock()
	if !ok {
		return false
	}

	delivered := false
	p.once.Do(func() {
		p.done <- payload
		delivered = true
	})
	return delivered
}

// Timeout completes the entry without a payload and removes it, so a late
// Resolve for the same token is ignored.
func (r *Registry) Timeout(token string) bool {
	r.mu.Lock()
	p, ok := r.pending[token]
	if ok {
		delete(r.pending, token)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	expired := false
	p.once.Do(func() { expired = true })
	return expired
}

// Len reports the number of pending entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Done yields the payload once the entry is resolved.
func (p *Pending) Done() <-chan []byte {
	return p.done
}

// Token returns the callback name of the entry.
func (p *Pending) Token() string {
	return p.token
}

var callbackBody = regexp.MustCompile(`^\s*([A-Za-z_$][\w$.]*)\s*\(([\s\S]*)\)\s*;?\s*$`)

// unwrapCallback splits a `name(<json>);` body into the callback name and its JSON argument.
func unwrapCallback(body []byte) (string, []byte, bool) {
	m := callbackBody.FindSubmatch(body)
	if m == nil {
		return "", nil, false
	}
	return string(m[1]), m[2], true
}
