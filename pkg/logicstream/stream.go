package logicstream

import "sync"

// Observer receives the three events a push-based producer may emit: zero or
// more Next values, then exactly one of Error or Complete. Implementations
// must not call Next after Error or Complete has been called (spec §4.2).
type Observer[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

// Teardown releases whatever resources a Subscribe call allocated.
// Subscription.Unsubscribe invokes it at most once; a producer that finishes
// on its own (Complete or Error) does not trigger it.
type Teardown func()

// Subscription is the handle returned by Subscribe. Unsubscribe is
// cooperative (§5): it stops delivery of further events to the observer and
// runs the producer's teardown, but a producer mid-emission must itself
// observe the subscription's closed state to stop promptly.
type Subscription struct {
	mu       sync.Mutex
	closed   bool
	teardown Teardown
}

// Unsubscribe stops event delivery and invokes the producer's teardown
// exactly once, even if called multiple times.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	td := s.teardown
	s.mu.Unlock()
	if td != nil {
		td()
	}
}

// Closed reports whether Unsubscribe has run. Subscribe's delivery guard
// checks it before every Next, so values a producer emits after Unsubscribe
// are dropped; the producers in this file (Of included) do not poll it and
// run through their remaining values.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Producer is the function a new Observable wraps: given the observer to
// notify, it returns the teardown to run on unsubscribe. A Producer may
// call obs.Next synchronously before returning, or asynchronously from a
// goroutine it starts — Observable makes no assumption about which.
type Producer[T any] func(obs Observer[T]) Teardown

// Observable is a single-producer, push-based stream of T. It is the
// substrate the Goal protocol (goal.go) is built on: a Goal is a function
// from Observable[*Subst] to Observable[*Subst].
type Observable[T any] struct {
	subscribe Producer[T]
}

// New wraps a Producer as an Observable.
func New[T any](p Producer[T]) Observable[T] { return Observable[T]{subscribe: p} }

// Subscribe attaches obs to the stream and returns a Subscription. Once
// either Error or Complete has been delivered, no further Next events
// reach obs even if the underlying producer keeps emitting.
func (o Observable[T]) Subscribe(obs Observer[T]) *Subscription {
	sub := &Subscription{}
	done := false
	var mu sync.Mutex
	guard := Observer[T]{
		Next: func(v T) {
			mu.Lock()
			d := done
			mu.Unlock()
			if d || sub.Closed() {
				return
			}
			if obs.Next != nil {
				obs.Next(v)
			}
		},
		Error: func(err error) {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			done = true
			mu.Unlock()
			if sub.Closed() {
				return
			}
			if obs.Error != nil {
				obs.Error(err)
			}
		},
		Complete: func() {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			done = true
			mu.Unlock()
			if sub.Closed() {
				return
			}
			if obs.Complete != nil {
				obs.Complete()
			}
		},
	}
	td := o.subscribe(guard)
	sub.mu.Lock()
	sub.teardown = td
	sub.mu.Unlock()
	return sub
}

// Of creates an Observable that synchronously emits values, in order, then
// completes.
func Of[T any](values ...T) Observable[T] {
	return New(func(obs Observer[T]) Teardown {
		for _, v := range values {
			if obs.Next != nil {
				obs.Next(v)
			}
		}
		if obs.Complete != nil {
			obs.Complete()
		}
		return nil
	})
}

// Empty returns an Observable that completes immediately without emitting.
func Empty[T any]() Observable[T] {
	return New(func(obs Observer[T]) Teardown {
		if obs.Complete != nil {
			obs.Complete()
		}
		return nil
	})
}

// Fail returns an Observable that immediately errors without emitting.
func Fail[T any](err error) Observable[T] {
	return New(func(obs Observer[T]) Teardown {
		if obs.Error != nil {
			obs.Error(err)
		}
		return nil
	})
}

// Map transforms each value with f.
func Map[T, U any](src Observable[T], f func(T) U) Observable[U] {
	return New(func(obs Observer[U]) Teardown {
		sub := src.Subscribe(Observer[T]{
			Next:     func(v T) { obs.Next(f(v)) },
			Error:    obs.Error,
			Complete: obs.Complete,
		})
		return sub.Unsubscribe
	})
}

// Filter keeps only values for which p returns true.
func Filter[T any](src Observable[T], p func(T) bool) Observable[T] {
	return New(func(obs Observer[T]) Teardown {
		sub := src.Subscribe(Observer[T]{
			Next: func(v T) {
				if p(v) {
					obs.Next(v)
				}
			},
			Error:    obs.Error,
			Complete: obs.Complete,
		})
		return sub.Unsubscribe
	})
}

// FlatMap subscribes to f(v) for every v from src and interleaves all of
// their emissions onto the output. The output completes only once src and
// every inner Observable it spawned have completed (spec §4.2): FlatMap
// tracks outstanding inner subscriptions explicitly rather than assuming
// they finish before the next outer value arrives.
func FlatMap[T, U any](src Observable[T], f func(T) Observable[U]) Observable[U] {
	return New(func(obs Observer[U]) Teardown {
		var mu sync.Mutex
		outerDone := false
		inner := map[*Subscription]bool{}

		maybeComplete := func() {
			if outerDone && len(inner) == 0 {
				if obs.Complete != nil {
					obs.Complete()
				}
			}
		}

		outerSub := src.Subscribe(Observer[T]{
			Next: func(v T) {
				child := f(v)
				var childSub *Subscription
				finished := false
				childSub = child.Subscribe(Observer[U]{
					Next: obs.Next,
					Error: func(err error) {
						if obs.Error != nil {
							obs.Error(err)
						}
					},
					Complete: func() {
						mu.Lock()
						finished = true
						delete(inner, childSub)
						maybeComplete()
						mu.Unlock()
					},
				})
				mu.Lock()
				if !finished {
					inner[childSub] = true
				}
				mu.Unlock()
			},
			Error: func(err error) {
				if obs.Error != nil {
					obs.Error(err)
				}
			},
			Complete: func() {
				mu.Lock()
				outerDone = true
				maybeComplete()
				mu.Unlock()
			},
		})

		return func() {
			outerSub.Unsubscribe()
			mu.Lock()
			for s := range inner {
				s.Unsubscribe()
			}
			mu.Unlock()
		}
	})
}

// Take forwards at most n values, then completes and unsubscribes upstream
// (spec §5: "take(n) unsubscribes upstream after delivering the nth
// value"). n<=0 passes every value through unmodified.
func Take[T any](src Observable[T], n int) Observable[T] {
	if n <= 0 {
		return src
	}
	return New(func(obs Observer[T]) Teardown {
		count := 0
		var sub *Subscription
		sub = src.Subscribe(Observer[T]{
			Next: func(v T) {
				if count >= n {
					return
				}
				count++
				obs.Next(v)
				if count >= n {
					if obs.Complete != nil {
						obs.Complete()
					}
					if sub != nil {
						sub.Unsubscribe()
					}
				}
			},
			Error:    obs.Error,
			Complete: obs.Complete,
		})
		if count >= n {
			sub.Unsubscribe()
		}
		return sub.Unsubscribe
	})
}

// Merge interleaves the emissions of every source in arrival order and
// completes once all sources have completed. It provides no ordering
// guarantee across sources (spec §5).
func Merge[T any](sources ...Observable[T]) Observable[T] {
	return New(func(obs Observer[T]) Teardown {
		var mu sync.Mutex
		remaining := len(sources)
		if remaining == 0 {
			if obs.Complete != nil {
				obs.Complete()
			}
			return nil
		}
		subs := make([]*Subscription, len(sources))
		for i, src := range sources {
			subs[i] = src.Subscribe(Observer[T]{
				Next: obs.Next,
				Error: func(err error) {
					if obs.Error != nil {
						obs.Error(err)
					}
				},
				Complete: func() {
					mu.Lock()
					remaining--
					done := remaining == 0
					mu.Unlock()
					if done && obs.Complete != nil {
						obs.Complete()
					}
				},
			})
		}
		return func() {
			for _, s := range subs {
				s.Unsubscribe()
			}
		}
	})
}

// Share multicasts a single upstream subscription to any number of
// downstream subscribers, replaying every value seen so far to a
// late-arriving subscriber plus every future value (spec §4.2, §9). This is
// what lets Or (goal.go) fan a single upstream substitution stream out to
// several branch goals without re-running the upstream producer once per
// branch.
//
// Per the decided open question in SPEC_FULL.md §7.3, the replay buffer and
// upstream subscription are released once the upstream has completed (or
// errored) and every subscriber has unsubscribed — not held forever.
func Share[T any](src Observable[T]) Observable[T] {
	state := &shareState[T]{subs: map[int]Observer[T]{}}
	return New(func(obs Observer[T]) Teardown {
		state.mu.Lock()
		for _, v := range state.buffer {
			obs.Next(v)
		}
		id := state.nextID
		state.nextID++
		state.subs[id] = obs
		terminal := state.terminal
		if terminal != nil {
			t := *terminal
			state.mu.Unlock()
			if t.isErr && obs.Error != nil {
				obs.Error(t.err)
			} else if !t.isErr && obs.Complete != nil {
				obs.Complete()
			}
			return func() {}
		}
		start := state.upstream == nil
		if start {
			state.upstream = &Subscription{}
		}
		state.mu.Unlock()
		if start {
			state.start(src)
		}

		return func() {
			state.mu.Lock()
			delete(state.subs, id)
			empty := len(state.subs) == 0
			up := state.upstream
			if empty && state.terminal == nil {
				state.upstream = nil
			}
			if empty && state.terminal != nil {
				state.buffer = nil
			}
			state.mu.Unlock()
			if empty && up != nil {
				up.Unsubscribe()
			}
		}
	})
}

type shareTerminal struct {
	isErr bool
	err   error
}

type shareState[T any] struct {
	mu       sync.Mutex
	buffer   []T
	subs     map[int]Observer[T]
	nextID   int
	upstream *Subscription
	terminal *shareTerminal
}

func (s *shareState[T]) start(src Observable[T]) {
	up := src.Subscribe(Observer[T]{
		Next: func(v T) {
			s.mu.Lock()
			s.buffer = append(s.buffer, v)
			obsSnapshot := snapshotObservers(s.subs)
			s.mu.Unlock()
			for _, o := range obsSnapshot {
				if o.Next != nil {
					o.Next(v)
				}
			}
		},
		Error: func(err error) {
			s.mu.Lock()
			s.terminal = &shareTerminal{isErr: true, err: err}
			obsSnapshot := snapshotObservers(s.subs)
			s.mu.Unlock()
			for _, o := range obsSnapshot {
				if o.Error != nil {
					o.Error(err)
				}
			}
		},
		Complete: func() {
			s.mu.Lock()
			s.terminal = &shareTerminal{}
			obsSnapshot := snapshotObservers(s.subs)
			s.mu.Unlock()
			for _, o := range obsSnapshot {
				if o.Complete != nil {
					o.Complete()
				}
			}
		},
	})
	s.mu.Lock()
	s.upstream = up
	s.mu.Unlock()
}

func snapshotObservers[T any](m map[int]Observer[T]) []Observer[T] {
	out := make([]Observer[T], 0, len(m))
	for _, o := range m {
		out = append(out, o)
	}
	return out
}

// ToSlice drains src synchronously and returns everything it emitted. If
// src errors, the values seen before the error are returned alongside it
// (spec §7: "toArray returns the list of results produced before the
// error").
func ToSlice[T any](src Observable[T]) ([]T, error) {
	var out []T
	var err error
	done := make(chan struct{})
	src.Subscribe(Observer[T]{
		Next: func(v T) { out = append(out, v) },
		Error: func(e error) {
			err = e
			close(done)
		},
		Complete: func() { close(done) },
	})
	<-done
	return out, err
}
