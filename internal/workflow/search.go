// Package workflow coordinates address search, selection and enrichment.
package workflow

import (
	"context"
	"slices"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addressbook-cli/internal/lookup"
	"github.com/sells-group/addressbook-cli/internal/model"
)

// State is the search workflow state.
type State int

const (
	Idle State = iota
	Loading
	Success
	Failure
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// SearchSnapshot is a point-in-time copy of the search state.
type SearchSnapshot struct {
	State     State
	Addresses []model.Address
	Err       error
}

// Loading reports whether a request is in flight.
func (s SearchSnapshot) Loading() bool {
	return s.State == Loading
}

// SearchOption configures a Search.
type SearchOption func(*Search)

// WithSettleHook registers fn to run when the latest submit settles. It is
// called with the search lock held and must not call back into the Search.
func WithSettleHook(fn func(err error)) SearchOption {
	return func(s *Search) {
		s.onSettle = fn
	}
}

// Search runs address lookups and holds the normalized results.
//
// Every submit takes a sequence number. A response that is not for the
// latest submit is discarded, so a slow earlier request never overwrites a
// newer result.
type Search struct {
	client   lookup.Client
	onSettle func(err error)

	mu        sync.Mutex
	seq       uint64
	state     State
	addresses []model.Address
	err       error
}

// NewSearch creates an idle Search backed by client.
func NewSearch(client lookup.Client, opts ...SearchOption) *Search {
	s := &Search{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit clears prior results, looks up postcode and houseNumber and stores
// the normalized addresses. Inputs are sent as given. It returns nil on
// success, a *TransportError or *ServerError on failure, or ErrSuperseded if
// a newer submit started before this one settled.
func (s *Search) Submit(ctx context.Context, postcode, houseNumber string) (err error) {
	seq := s.begin()

	var addrs []model.Address
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("search: recovered panic",
				zap.Any("panic", r),
				zap.String("postcode", postcode),
			)
			addrs = nil
			err = &TransportError{Err: eris.Errorf("panic: %v", r)}
		}
		if !s.settle(seq, addrs, err) {
			err = ErrSuperseded
		}
	}()

	addrs, err = s.fetch(ctx, lookup.Request{Postcode: postcode, HouseNumber: houseNumber})
	return err
}

func (s *Search) fetch(ctx context.Context, req lookup.Request) ([]model.Address, error) {
	resp, err := s.client.Lookup(ctx, req)
	if err != nil {
		zap.L().Warn("search: lookup failed",
			zap.String("postcode", req.Postcode),
			zap.String("house_number", req.HouseNumber),
			zap.Error(err),
		)
		return nil, &TransportError{Err: err}
	}
	if !resp.OK() {
		se := &ServerError{Message: MsgServerDefault}
		if resp != nil {
			se.HTTPStatus = resp.HTTPStatus
			if resp.ErrorMessage != "" {
				se.Message = resp.ErrorMessage
			}
		}
		return nil, se
	}
	return model.NormalizeAll(resp.Details), nil
}

func (s *Search) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = Loading
	s.addresses = nil
	s.err = nil
	return s.seq
}

func (s *Search) settle(seq uint64, addrs []model.Address, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		zap.L().Debug("search: discarding stale response",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", s.seq),
		)
		return false
	}

	if err != nil {
		s.state = Failure
		s.addresses = nil
		s.err = err
	} else {
		s.state = Success
		s.addresses = addrs
		s.err = nil
	}
	if s.onSettle != nil {
		s.onSettle(err)
	}
	return true
}

// Clear returns to Idle and invalidates any request still in flight.
func (s *Search) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = Idle
	s.addresses = nil
	s.err = nil
}

// Addresses returns a copy of the current results.
func (s *Search) Addresses() []model.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.addresses)
}

// Snapshot returns a copy of the current state.
func (s *Search) Snapshot() SearchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SearchSnapshot{
		State:     s.state,
		Addresses: slices.Clone(s.addresses),
		Err:       s.err,
	}
}
