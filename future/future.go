// Package future implements DurableFuture and its order-preserving
// combinators (spec §4.9). A DurableFuture wraps either an already-resolved
// value (produced during replay) or a pending completion.Rendezvous;
// awaiting it blocks until resolution.
package future

import (
	"restate.dev/sdk-go-core/completion"
	"restate.dev/sdk-go-core/protocol"
)

// Decoder turns a raw completion result into a typed value.
type Decoder[T any] func(protocol.CompletionResult) (T, error)

// Awaitable is the untyped handle every combinator operates over: a channel
// that closes on resolution, plus a way to read the raw outcome once closed.
// DurableFuture implements it so heterogeneous futures (different T) can be
// combined by All/Race/WaitAll.
type Awaitable interface {
	Done() <-chan struct{}
	rawResult() (protocol.CompletionResult, error)
}

// DurableFuture is a typed handle over a single pending or resolved
// completion.
type DurableFuture[T any] struct {
	rendezvous *completion.Rendezvous
	decode     Decoder[T]
}

// New wraps a rendezvous with a decoder, producing a typed DurableFuture.
// Used both for live-issued commands (a fresh, possibly-pending rendezvous)
// and for replayed entries (a rendezvous that is already resolved).
func New[T any](r *completion.Rendezvous, decode Decoder[T]) *DurableFuture[T] {
	return &DurableFuture[T]{rendezvous: r, decode: decode}
}

// Await blocks until the future resolves and returns its decoded value.
func (f *DurableFuture[T]) Await() (T, error) {
	var zero T
	result, err := f.rendezvous.Wait()
	if err != nil {
		return zero, err
	}
	return f.decode(result)
}

// Done implements Awaitable.
func (f *DurableFuture[T]) Done() <-chan struct{} { return f.rendezvous.Done() }

func (f *DurableFuture[T]) rawResult() (protocol.CompletionResult, error) {
	return f.rendezvous.Wait()
}

// All awaits every future in order, returning the first failure encountered
// (by registration order, not arrival order) if any. Futures that are never
// consumed after a failure remain registered — their rendezvous are not
// cancelled — preserving protocol correctness (the notification for them
// must still be accepted when it arrives).
func All(futures ...Awaitable) error {
	for _, f := range futures {
		if _, err := f.rawResult(); err != nil {
			return err
		}
	}
	return nil
}

// Race awaits the first future (by arrival order, not registration order) to
// resolve, returning its raw result/error. Registration order of the other
// futures is preserved; they remain registered for later awaits.
func Race(futures ...Awaitable) (protocol.CompletionResult, error) {
	if len(futures) == 0 {
		panic("future: Race called with no futures")
	}
	if len(futures) == 1 {
		return futures[0].rawResult()
	}
	cases := make([]<-chan struct{}, len(futures))
	for i, f := range futures {
		cases[i] = f.Done()
	}
	idx := selectFirst(cases)
	return futures[idx].rawResult()
}

// Outcome is one element of WaitAll's result stream: which future resolved
// and what it resolved to.
type Outcome struct {
	Index  int
	Result protocol.CompletionResult
	Err    error
}

// WaitAll awaits every future, yielding one Outcome per future in the order
// they actually resolve (arrival order), not registration order. Every
// future is awaited exactly once, so no rendezvous is left unobserved.
func WaitAll(futures ...Awaitable) []Outcome {
	remaining := make([]Awaitable, len(futures))
	copy(remaining, futures)
	indices := make([]int, len(futures))
	for i := range indices {
		indices[i] = i
	}

	outcomes := make([]Outcome, 0, len(futures))
	for len(remaining) > 0 {
		cases := make([]<-chan struct{}, len(remaining))
		for i, f := range remaining {
			cases[i] = f.Done()
		}
		pos := selectFirst(cases)
		result, err := remaining[pos].rawResult()
		outcomes = append(outcomes, Outcome{Index: indices[pos], Result: result, Err: err})

		remaining = append(remaining[:pos], remaining[pos+1:]...)
		indices = append(indices[:pos], indices[pos+1:]...)
	}
	return outcomes
}

// selectFirst blocks until at least one of the given channels is closed and
// returns its index. Built on reflect.Select so it works for an arbitrary,
// runtime-determined number of futures (a plain "select" statement needs a
// fixed case count at compile time).
func selectFirst(chans []<-chan struct{}) int {
	if len(chans) == 1 {
		<-chans[0]
		return 0
	}
	return reflectSelect(chans)
}
