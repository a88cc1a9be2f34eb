package miner

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cyclemine/pkg/mining/core"
	"cyclemine/pkg/mining/plugin"
)

const (
	// idleWait bounds CPU use when the plugin reports neither input
	// capacity nor output data. Short enough that it never matters for
	// throughput; cancellation is checked inside the wait so shutdown is
	// not delayed past it.
	idleWait = 10 * time.Millisecond

	// solutionBuffer is the capacity of the result channel out of the
	// job loop. Accepted solutions beyond an unread backlog of this size
	// are dropped rather than blocking the worker.
	solutionBuffer = 32

	// ctrlBuffer is the capacity of the control channel into the job
	// loop.
	ctrlBuffer = 8
)

// jobConfig is the immutable description of one asynchronous job. Built once
// by Notify and never mutated after the delegator starts.
type jobConfig struct {
	id         uint32
	preNonce   []byte
	postNonce  []byte
	difficulty uint64
}

// ctrlMsg carries a parameter update request into the running job loop.
type ctrlMsg struct {
	name  string
	value uint32
}

// delegator runs one dedicated worker goroutine that saturates the plugin's
// input queue with candidate headers and drains accepted solutions. Stopping
// is cooperative: cancelling the context requests shutdown, the loop calls
// StopProcessing once on the way out, and done closes when the worker has
// exited.
type delegator struct {
	cfg   jobConfig
	reg   *plugin.Registry
	check core.DifficultyFunc
	log   *zap.SugaredLogger
	runID string

	ctx       context.Context
	cancel    context.CancelFunc
	ctrl      chan ctrlMsg
	solutions chan core.Solution
	done      chan struct{}

	stats jobStats
	found chan struct{} // closed on first accepted solution

	errOnce sync.Once
	errMu   sync.Mutex
	fatal   error
}

func newDelegator(cfg jobConfig, reg *plugin.Registry, check core.DifficultyFunc, log *zap.SugaredLogger) *delegator {
	if check == nil {
		check = core.MeetsDifficulty
	}
	ctx, cancel := context.WithCancel(context.Background())
	runID := uuid.NewString()
	return &delegator{
		cfg:       cfg,
		reg:       reg,
		check:     check,
		log:       log.With("job_id", cfg.id, "run_id", runID),
		runID:     runID,
		ctx:       ctx,
		cancel:    cancel,
		ctrl:      make(chan ctrlMsg, ctrlBuffer),
		solutions: make(chan core.Solution, solutionBuffer),
		done:      make(chan struct{}),
		found:     make(chan struct{}),
	}
}

// start spawns the worker goroutine.
func (d *delegator) start() {
	d.stats.startedAt = time.Now()
	go d.run()
}

func (d *delegator) run() {
	defer close(d.done)

	if err := d.reg.StartProcessing(); err != nil {
		d.setFatal(core.NewProcessingError("error starting plugin processing: " + err.Error()))
		d.log.Errorw("failed to start plugin processing", "error", err)
		return
	}
	d.log.Infow("job loop started", "difficulty", d.cfg.difficulty)

	for d.ctx.Err() == nil {
		d.applyControl()

		pushed := d.fillPass()
		popped := d.drainPass()
		if d.fatalErr() != nil {
			break
		}

		if !pushed && !popped {
			select {
			case <-d.ctx.Done():
			case <-time.After(idleWait):
			}
		}
	}

	// Best-effort stop request; the plugin is expected, not guaranteed,
	// to cease shortly after.
	if err := d.reg.StopProcessing(); err != nil && !errors.Is(err, core.ErrPluginNotLoaded) {
		d.log.Warnw("error stopping plugin processing", "error", err)
	}
	d.log.Infow("job loop exited", "stats", d.stats.snapshot())
}

// applyControl drains pending parameter-update requests without blocking.
// Failures are logged and the loop continues.
func (d *delegator) applyControl() {
	for {
		select {
		case msg := <-d.ctrl:
			if err := d.reg.SetParameter(msg.name, msg.value); err != nil {
				d.log.Warnw("parameter update rejected",
					"name", msg.name, "value", msg.value, "error", err)
			}
		default:
			return
		}
	}
}

// fillPass synthesizes candidate headers while the plugin reports input
// capacity, so the plugin is never starved. Each candidate is a fresh random
// nonce spliced between the header fragments and digested. Returns whether
// anything was pushed.
func (d *delegator) fillPass() bool {
	pushed := false
	for d.ctx.Err() == nil {
		under, err := d.reg.QueueUnderLimit()
		if err != nil {
			d.classify(err)
			return pushed
		}
		if !under {
			return pushed
		}

		nonce, digest := d.nextCandidate()
		ok, err := d.reg.PushInput(digest[:], nonce)
		if err != nil {
			d.classify(err)
			return pushed
		}
		if !ok {
			// Flow control, not an error: re-check capacity next
			// pass.
			d.stats.pushesRejected.Add(1)
			return pushed
		}
		d.stats.candidatesPushed.Add(1)
		pushed = true
	}
	return pushed
}

// drainPass empties the plugin's output queue, filtering each claimed
// solution through the injected difficulty policy. Returns whether anything
// was popped.
func (d *delegator) drainPass() bool {
	popped := false
	for d.ctx.Err() == nil {
		sol, err := d.reg.ReadOutput()
		if err != nil {
			d.classify(err)
			return popped
		}
		if sol == nil {
			return popped
		}
		popped = true
		d.stats.solutionsPopped.Add(1)

		if !d.check(sol, d.cfg.difficulty) {
			d.stats.solutionsRejected.Add(1)
			d.log.Debugw("solution below target difficulty",
				"nonce", sol.NonceUint64())
			continue
		}
		d.stats.solutionsAccepted.Add(1)
		d.markFound()
		select {
		case d.solutions <- *sol:
		default:
			d.log.Debugw("solution buffer full, dropping",
				"nonce", sol.NonceUint64())
		}
	}
	return popped
}

// nextCandidate draws a fresh random 64-bit nonce and derives the candidate
// header digest from the job's immutable fragments.
func (d *delegator) nextCandidate() ([core.NonceSize]byte, [core.DigestSize]byte) {
	var raw [core.NonceSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-derived nonce rather than aborting the job.
		binary.BigEndian.PutUint64(raw[:], uint64(time.Now().UnixNano()))
	}
	nonce := core.EncodeNonce(binary.BigEndian.Uint64(raw[:]))
	digest := core.HeaderDigest(d.cfg.preNonce, nonce, d.cfg.postNonce)
	return nonce, digest
}

// classify sorts a call-surface error: PluginNotLoaded means the plugin was
// unloaded from under the job and is fatal; everything else is logged and
// the loop continues.
func (d *delegator) classify(err error) {
	if errors.Is(err, core.ErrPluginNotLoaded) {
		d.setFatal(err)
		d.cancel()
		return
	}
	d.log.Warnw("plugin call failed inside job loop", "error", err)
}

func (d *delegator) setFatal(err error) {
	d.errOnce.Do(func() {
		d.errMu.Lock()
		d.fatal = err
		d.errMu.Unlock()
	})
}

func (d *delegator) fatalErr() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.fatal
}

func (d *delegator) markFound() {
	select {
	case <-d.found:
	default:
		close(d.found)
	}
}

func (d *delegator) solutionFound() bool {
	select {
	case <-d.found:
		return true
	default:
		return false
	}
}
