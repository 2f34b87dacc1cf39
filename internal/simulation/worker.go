package simulation

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Kind selects the simulation a Request runs.
type Kind string

const (
	KindHowMany Kind = "how_many"
	KindWhen    Kind = "when"
)

// Request is the message sent to the worker. Window is the selected
// throughput window and Full the whole history used as fallback.
type Request struct {
	Kind           Kind   `json:"kind"`
	Window         []int  `json:"window"`
	Full           []int  `json:"full"`
	MinSamples     int    `json:"minSamples"`
	Days           int    `json:"days,omitempty"`
	TargetCount    int    `json:"targetCount,omitempty"`
	NumSimulations int    `json:"numSimulations"`
	Revision       uint64 `json:"revision"`           // dataset revision the samples came from
	Sequence       uint64 `json:"sequence,omitempty"` // per-kind issue order, newer is larger
}

// Response is the message the worker sends back. Exactly one of HowMany and
// When is set unless Err is.
type Response struct {
	ID       uuid.UUID      `json:"id"`
	Revision uint64         `json:"revision"`
	Sequence uint64         `json:"sequence,omitempty"`
	HowMany  *HowManyResult `json:"howMany,omitempty"`
	When     *WhenResult    `json:"when,omitempty"`
	Err      error          `json:"-"`
}

// ErrUnknownKind is returned for requests with an unsupported Kind.
var ErrUnknownKind = errors.New("unknown simulation kind")

// Worker runs simulations off the caller's goroutine. Only the most recently
// submitted request ever publishes a response.
type Worker struct {
	engine  *Engine
	results chan Response

	mu     sync.Mutex
	latest uuid.UUID
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

func NewWorker(engine *Engine) *Worker {
	return &Worker{
		engine:  engine,
		results: make(chan Response, 1),
	}
}

// Results delivers responses for the latest request. A pending response that
// nobody read is replaced by a newer one.
func (w *Worker) Results() <-chan Response {
	return w.results
}

// Submit copies the request, cancels any request still in flight and starts
// the new one in the background.
func (w *Worker) Submit(req Request) uuid.UUID {
	req = copyRequest(req)
	id := uuid.New()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return uuid.Nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.latest = id
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()
		resp := w.execute(ctx, id, req)
		w.publish(ctx, resp)
	}()

	log.Debug().Str("id", id.String()).Str("kind", string(req.Kind)).Uint64("revision", req.Revision).Msg("Simulation submitted")
	return id
}

// RunSync runs a request on the calling goroutine.
func (w *Worker) RunSync(ctx context.Context, req Request) Response {
	return w.execute(ctx, uuid.New(), copyRequest(req))
}

// Close cancels the running request and waits for it to stop.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	w.wg.Wait()
	close(w.results)
}

func (w *Worker) publish(ctx context.Context, resp Response) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || resp.ID != w.latest || ctx.Err() != nil {
		log.Debug().Str("id", resp.ID.String()).Msg("Dropping superseded simulation result")
		return
	}
	select {
	case w.results <- resp:
	default:
		// Replace the unread older response.
		select {
		case <-w.results:
		default:
		}
		w.results <- resp
	}
}

func (w *Worker) execute(ctx context.Context, id uuid.UUID, req Request) Response {
	resp := Response{ID: id, Revision: req.Revision, Sequence: req.Sequence}
	samples, fallback := SelectSamples(req.Window, req.Full, req.MinSamples)
	if fallback {
		log.Info().Int("window", len(req.Window)).Int("full", len(req.Full)).Msg("Throughput window too small, falling back to full history")
	}

	switch req.Kind {
	case KindHowMany:
		res, err := w.engine.RunHowMany(ctx, HowManyRequest{Samples: samples, Days: req.Days, NumSimulations: req.NumSimulations})
		if err != nil {
			resp.Err = err
			return resp
		}
		res.FallbackUsed = fallback
		resp.HowMany = &res
	case KindWhen:
		res, err := w.engine.RunWhen(ctx, WhenRequest{Samples: samples, TargetCount: req.TargetCount, NumSimulations: req.NumSimulations})
		if err != nil {
			resp.Err = err
			return resp
		}
		res.FallbackUsed = fallback
		resp.When = &res
	default:
		resp.Err = ErrUnknownKind
	}
	return resp
}

func copyRequest(req Request) Request {
	req.Window = slices.Clone(req.Window)
	req.Full = slices.Clone(req.Full)
	return req
}
