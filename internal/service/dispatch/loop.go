// Package dispatch runs the single worker that talks to the dispatch server:
// it sends queued requests one at a time, retries transient failures and polls
// for pushed events when there is nothing to send.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

var ErrAlreadyRunning = errors.New("dispatch loop already running")

type Options struct {
	PollInterval    time.Duration
	RetryDelay      time.Duration
	ShutdownTimeout time.Duration
	NoRetryStatuses []int
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = DefaultShutdownTimeout
	}
	return o
}

type Loop struct {
	queue    RequestQueue
	sender   Sender
	calls    CallSequencer
	position Positioner
	router   *Router
	policy   RetryPolicy
	opts     Options
	log      logger.Logger

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

func New(queue RequestQueue, sender Sender, calls CallSequencer, position Positioner, router *Router, opts Options, log logger.Logger) *Loop {
	opts = opts.withDefaults()
	return &Loop{
		queue:    queue,
		sender:   sender,
		calls:    calls,
		position: position,
		router:   router,
		policy:   NewRetryPolicy(opts.NoRetryStatuses),
		opts:     opts,
		log:      log,
	}
}

// Start launches the worker goroutine. The loop may be started again after Stop returned.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		return ErrAlreadyRunning
	}

	workerCtx, cancel := context.WithCancel(ctx)
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.cancel = cancel

	go l.run(workerCtx, l.stop, l.done)

	l.log.Info(ctx, "dispatch loop started", "poll_interval", l.opts.PollInterval.String())
	return nil
}

// Stop asks the worker to finish and waits for it. When the worker has not
// returned within the shutdown timeout its context is cancelled, which aborts the
// in-flight exchange, and ErrShutdownTimedOut is returned once it exits.
func (l *Loop) Stop(ctx context.Context) error {
	const op = "Loop.Stop"

	l.mu.Lock()
	stop, done, cancel := l.stop, l.done, l.cancel
	l.stop, l.done, l.cancel = nil, nil, nil
	l.mu.Unlock()

	if done == nil {
		return nil
	}

	close(stop)
	defer cancel()

	timer := time.NewTimer(l.opts.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		l.log.Info(ctx, "dispatch loop stopped")
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	cancel()
	<-done

	l.log.Warn(ctx, "dispatch loop forced to stop", "timeout", l.opts.ShutdownTimeout.String())
	return fmt.Errorf("%s: %w", op, types.ErrShutdownTimedOut)
}

// running reports whether a worker is active.
func (l *Loop) running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != nil
}

func (l *Loop) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	defer func() {
		if r := recover(); r != nil {
			l.log.Error(ctx, "dispatch loop panic", fmt.Errorf("%v", r))
		}
	}()

	wait := time.NewTimer(l.opts.PollInterval)
	defer wait.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		req, ok := l.queue.DequeueOldest()
		if ok {
			l.process(ctx, stop, req)
			// the next DequeueOldest sees whatever was enqueued meanwhile
			drain(l.queue.Ready())
			continue
		}

		l.poll(ctx)

		wait.Reset(l.opts.PollInterval)
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-l.queue.Ready():
		case <-wait.C:
		}
	}
}

// process sends one queued request and hands failures to the retry policy.
func (l *Loop) process(ctx context.Context, stop <-chan struct{}, req *models.Request) {
	ctx = wrap.WithRequest(wrap.WithAction(ctx, types.ActionSendRequest), req.Type.String(), req.Sequence)

	res, err := l.send(ctx, req)
	if err != nil {
		l.log.Error(wrap.ErrorCtx(ctx, err), "request cannot be sent", err)
		return
	}

	if res.OK() {
		l.log.Debug(ctx, "request delivered")
		return
	}

	l.retry(ctx, stop, req, res)
}

// poll issues one refresh request and routes the events it carries.
func (l *Loop) poll(ctx context.Context) {
	ctx = wrap.WithAction(ctx, types.ActionRefreshPoll)
	req := models.NewRefreshRequest()

	res, err := l.send(ctx, req)
	if err != nil {
		l.log.Error(wrap.ErrorCtx(ctx, err), "refresh poll cannot be sent", err)
		return
	}
	if !res.OK() {
		l.log.Warn(ctx, "refresh poll failed", "status", res.Status, "reason", res.Message)
		return
	}

	events, err := codec.DecodePoll(res.Body)
	if err != nil {
		metrics.RecordEvent("refresh", "malformed")
		l.log.Warn(ctx, "refresh response partly malformed", "reason", err.Error())
	}

	if err := l.router.Route(ctx, events); err != nil {
		l.log.Warn(wrap.ErrorCtx(ctx, err), "polled reply rejected", "reason", err.Error())
	}
}

// drain consumes a pending signal on ready, if any.
func drain(ready <-chan struct{}) {
	select {
	case <-ready:
	default:
	}
}

// send performs one exchange. The returned error is set only when req could
// not be encoded; every server answer, failures included, comes back as a Result.
func (l *Loop) send(ctx context.Context, req *models.Request) (codec.Result, error) {
	const op = "Loop.send"

	call, err := codec.Encode(req)
	if err != nil {
		return codec.Result{}, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	start := time.Now()
	resp, err := l.sender.Execute(ctx, call.Method, call.Route, call.Body)
	if err != nil {
		l.log.Debug(ctx, "exchange failed", "cause", err.Error())
	}

	res := codec.DecodeCommand(resp.StatusCode, resp.Body)
	metrics.RecordRequest(req.Type.String(), res.Status, time.Since(start))

	return res, nil
}
