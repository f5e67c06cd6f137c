package notification

import "context"

// Pending is the handle for one in-flight dispatch. It resolves exactly once.
type Pending struct {
	id   string
	done chan struct{}
	err  error
}

func newPending(id string) *Pending {
	return &Pending{id: id, done: make(chan struct{})}
}

// NewResolved returns a Pending that has already completed with err.
func NewResolved(id string, err error) *Pending {
	p := newPending(id)
	p.resolve(err)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// ID is the dispatch id under which the attempt is recorded.
func (p *Pending) ID() string { return p.id }

// Done is closed once the send attempt has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the outcome, or nil while the send is still running.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the send finishes or ctx is done. Giving up on ctx does
// not cancel the send.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
