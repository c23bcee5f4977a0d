package connectivity

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"petsync/internal/config"
	"petsync/internal/logging"
)

const subscriberBuffer = 8

// Observer owns the current connectivity state and fans out transitions.
type Observer struct {
	logger   *slog.Logger
	prober   Prober
	interval time.Duration
	timeout  time.Duration

	stateFile string
	netlink   bool

	mu          sync.Mutex
	state       State
	subscribers map[int]chan Transition
	nextID      int

	trigger chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	monitor *netlinkMonitor
	watcher *stateWatcher
}

// NewObserver builds an observer from configuration. A state file takes
// precedence over the HTTP probe.
func NewObserver(cfg *config.Config, logger *slog.Logger) *Observer {
	if cfg == nil {
		return NewWithProber(nil, 0, logger)
	}
	timeout := time.Duration(cfg.Connectivity.ProbeTimeoutSeconds) * time.Second
	var prober Prober
	if path := strings.TrimSpace(cfg.Connectivity.StateFile); path != "" {
		prober = &FileProber{Path: path}
	} else {
		prober = NewHTTPProber(cfg.Connectivity.ProbeURL, timeout)
	}
	obs := NewWithProber(prober, time.Duration(cfg.Connectivity.ProbeIntervalSeconds)*time.Second, logger)
	obs.timeout = timeout
	obs.stateFile = strings.TrimSpace(cfg.Connectivity.StateFile)
	// Link events only help when reachability comes from the HTTP probe.
	obs.netlink = cfg.Connectivity.Netlink && obs.stateFile == ""
	return obs
}

// NetlinkEnabled reports whether Start listens for network link events.
func (o *Observer) NetlinkEnabled() bool {
	return o.netlink
}

// NewWithProber builds an observer around an explicit prober. A nil prober
// yields an observer that only changes through Set.
func NewWithProber(prober Prober, interval time.Duration, logger *slog.Logger) *Observer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Observer{
		logger:      logging.NewComponentLogger(logger, "connectivity"),
		prober:      prober,
		interval:    interval,
		timeout:     5 * time.Second,
		state:       State{Description: unknownDescription, ChangedAt: time.Now().UTC()},
		subscribers: make(map[int]chan Transition),
		trigger:     make(chan struct{}, 1),
	}
}

// Current returns the latest state.
func (o *Observer) Current() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Online reports whether the backend is currently considered reachable.
func (o *Observer) Online() bool {
	return o.Current().Online
}

// Subscribe registers for transitions. The returned func unsubscribes and
// closes the channel. A subscriber that falls behind loses its oldest
// undelivered transitions.
func (o *Observer) Subscribe() (<-chan Transition, func()) {
	ch := make(chan Transition, subscriberBuffer)
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subscribers[id] = ch
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			if existing, ok := o.subscribers[id]; ok {
				delete(o.subscribers, id)
				close(existing)
			}
			o.mu.Unlock()
		})
	}
}

// Set records a new state and notifies subscribers when either the online
// flag or the description changed. It reports whether a transition occurred.
func (o *Observer) Set(online bool, description string) bool {
	description = strings.TrimSpace(description)
	if description == "" {
		if online {
			description = "Connected"
		} else {
			description = "No connection"
		}
	}

	o.mu.Lock()
	previous := o.state
	if previous.Online == online && previous.Description == description {
		o.mu.Unlock()
		return false
	}
	current := State{Online: online, Description: description, ChangedAt: time.Now().UTC()}
	o.state = current
	transition := Transition{Previous: previous, Current: current}
	for _, ch := range o.subscribers {
		deliver(ch, transition)
	}
	o.mu.Unlock()

	if previous.Online != online {
		o.logger.Info("connectivity changed",
			logging.String(logging.FieldEventType, "connectivity_changed"),
			logging.Bool("online", online),
			logging.String("description", description),
		)
	} else {
		o.logger.Debug("connectivity description changed",
			logging.String("description", description),
		)
	}
	return true
}

func deliver(ch chan Transition, transition Transition) {
	for {
		select {
		case ch <- transition:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Trigger requests an immediate probe. Requests coalesce while one is queued.
func (o *Observer) Trigger() {
	select {
	case o.trigger <- struct{}{}:
	default:
	}
}

// Start probes once, then keeps probing on the interval and on change
// triggers until ctx is cancelled or Stop is called.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil
	}
	if o.prober == nil {
		o.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.mu.Unlock()

	if o.netlink {
		o.monitor = newNetlinkMonitor(o.logger, o.Trigger)
		if err := o.monitor.Start(loopCtx); err != nil {
			o.logger.Debug("netlink monitor unavailable", logging.Error(err))
		}
	}
	if o.stateFile != "" {
		watcher, err := newStateWatcher(o.stateFile, o.logger, o.Trigger)
		if err != nil {
			logging.WarnWithContext(o.logger, "state file watcher unavailable", "state_watcher_failed",
				logging.Error(err),
				logging.String("path", o.stateFile),
				logging.String(logging.FieldErrorHint, "ensure the state file directory exists and is readable"),
				logging.String(logging.FieldImpact, "state file changes are picked up on the probe interval only"),
			)
		} else {
			o.watcher = watcher
			watcher.Start(loopCtx)
		}
	}

	o.probe(loopCtx)

	o.wg.Add(1)
	go o.loop(loopCtx)
	return nil
}

// Stop halts probing and waits for background goroutines.
func (o *Observer) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.monitor.Stop()
	o.watcher.Stop()
	o.wg.Wait()
}

// ProbeNow runs the configured prober immediately and applies the result.
func (o *Observer) ProbeNow(ctx context.Context) State {
	o.probe(ctx)
	return o.Current()
}

func (o *Observer) loop(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.probe(ctx)
		case <-o.trigger:
			o.probe(ctx)
		}
	}
}

func (o *Observer) probe(ctx context.Context) {
	if o.prober == nil || ctx.Err() != nil {
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	result := o.prober.Probe(probeCtx)
	if ctx.Err() != nil {
		return
	}
	o.Set(result.Online, result.Description)
}
