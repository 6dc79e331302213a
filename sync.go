package retain

import (
	"context"
	"sync"
	"time"

	"github.com/scribeworks/retain/internal/remote"
)

// DefaultSyncInterval is how often the background pass drains the queue.
const DefaultSyncInterval = 30 * time.Second

// syncPassTimeout bounds a single background or manual pass.
const syncPassTimeout = 30 * time.Second

// Syncer keeps the local store reconciled with the remote learning store.
// It owns the connectivity state machine and never lets a remote failure
// escape as an error to foreground callers; status is surfaced instead.
type Syncer struct {
	store    *Store
	remote   remote.Client
	log      *DebugLogger
	interval time.Duration

	mu      sync.Mutex
	state   SyncState
	lastErr string
	started bool
	stopped bool

	stop chan struct{}
	done chan struct{}
	kick chan struct{}
}

// NewSyncer creates a syncer. A nil client means no credentials are
// configured: the state machine pins to SyncOffline and every pass is a no-op.
func NewSyncer(store *Store, client remote.Client, log *DebugLogger, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	state := SyncUnknown
	if client == nil {
		state = SyncOffline
	}

	return &Syncer{
		store:    store,
		remote:   client,
		log:      log,
		interval: interval,
		state:    state,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		kick:     make(chan struct{}, 1),
	}
}

// Start launches the periodic background pass. Safe to call once.
func (s *Syncer) Start() {
	s.mu.Lock()
	if s.started || s.stopped || s.remote == nil {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.loop()
}

// Stop terminates the background pass and waits for it to exit. In-flight
// remote writes are abandoned; the queue invariant guarantees they are
// retried on the next pass.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	close(s.stop)
	if started {
		<-s.done
	}
}

// Kick nudges the background loop to drain the queue soon, without blocking.
func (s *Syncer) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// State returns the current connectivity state.
func (s *Syncer) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the user-visible sync indicator.
func (s *Syncer) Status() SyncStatus {
	s.mu.Lock()
	state := s.state
	message := s.lastErr
	s.mu.Unlock()

	status := SyncStatus{State: state, Message: message}
	if pending, err := s.store.QueueLength(); err == nil {
		status.PendingOperations = pending
	}
	if dropped, err := s.store.DroppedOperations(); err == nil {
		status.DroppedOperations = dropped
	}
	if lastSync, err := s.store.LastSync(); err == nil {
		status.LastSync = lastSync
	}
	return status
}

// Connect runs the lightweight connectivity probe and advances the state
// machine: connecting, then connected, disconnected, or error.
func (s *Syncer) Connect(ctx context.Context) SyncState {
	if s.remote == nil {
		return SyncOffline
	}

	s.setState(SyncConnecting, "")

	err := s.remote.Probe(ctx)
	switch {
	case err == nil:
		s.setState(SyncConnected, "")
	case isTransportError(err):
		s.setState(SyncDisconnected, "")
		s.log.Log("SYNC probe: unreachable: %v", err)
	default:
		s.setState(SyncErrored, err.Error())
		s.log.Log("SYNC probe: %v", err)
	}
	return s.State()
}

// SyncNow performs a full manual pass: probe, drain the queue, pull remote
// patterns and preferences, and record the sync time. Failures never escape
// as errors; the returned status carries the outcome.
func (s *Syncer) SyncNow(ctx context.Context) SyncStatus {
	if s.remote == nil {
		return s.Status()
	}

	if s.Connect(ctx) != SyncConnected {
		return s.Status()
	}

	if _, err := ProcessQueue(ctx, s.store, s.remote, s.log); err != nil {
		s.setState(SyncErrored, err.Error())
		return s.Status()
	}

	if err := s.pull(ctx); err != nil {
		s.setState(SyncErrored, err.Error())
		s.log.Log("SYNC pull: %v", err)
		return s.Status()
	}

	if err := s.store.SetLastSync(time.Now().UTC()); err != nil {
		s.setState(SyncErrored, err.Error())
		return s.Status()
	}

	s.setState(SyncConnected, "")
	return s.Status()
}

// ResetSync re-bootstraps sync state: pending operations are discarded, the
// recorded sync time cleared, then a full manual sync runs.
func (s *Syncer) ResetSync(ctx context.Context) SyncStatus {
	if err := s.store.ClearQueue(); err != nil {
		s.setState(SyncErrored, err.Error())
		return s.Status()
	}
	if err := s.store.DeleteMetadata(metadataKeyLastSync); err != nil {
		s.setState(SyncErrored, err.Error())
		return s.Status()
	}
	if s.remote == nil {
		return s.Status()
	}
	return s.SyncNow(ctx)
}

// pull merges the remote replica into the local store. Patterns merge by
// max(occurrenceCount, confidence); preferences by newest lastUpdated.
func (s *Syncer) pull(ctx context.Context) error {
	patterns, err := s.remote.FetchPatterns(ctx)
	if err != nil {
		return err
	}
	for i := range patterns {
		if err := s.store.MergeRemotePattern(payloadToPattern(&patterns[i])); err != nil {
			return err
		}
	}

	prefs, err := s.remote.FetchPreferences(ctx)
	if err != nil {
		return err
	}
	for i := range prefs {
		if err := s.store.MergeRemotePreference(payloadToPreference(&prefs[i])); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.backgroundPass()
		case <-s.kick:
			s.backgroundPass()
		}
	}
}

// backgroundPass probes and drains the queue. It touches lastSyncTime only
// when the queue fully drains; partial progress leaves it alone.
func (s *Syncer) backgroundPass() {
	ctx, cancel := context.WithTimeout(context.Background(), syncPassTimeout)
	defer cancel()

	if s.Connect(ctx) != SyncConnected {
		return
	}

	result, err := ProcessQueue(ctx, s.store, s.remote, s.log)
	if err != nil {
		s.setState(SyncErrored, err.Error())
		return
	}
	if result.Pending == 0 && result.Succeeded > 0 {
		if err := s.store.SetLastSync(time.Now().UTC()); err != nil {
			s.log.Log("SYNC record last_sync: %v", err)
		}
	}
}

func (s *Syncer) setState(state SyncState, message string) {
	s.mu.Lock()
	s.state = state
	s.lastErr = message
	s.mu.Unlock()
}
