package syncer

import (
	"context"
	"errors"
	"time"

	"petsync/internal/connectivity"
	"petsync/internal/logging"
	"petsync/internal/notifications"
)

// Start loads the initial state and begins reacting to connectivity. An
// offline to online transition starts a full sync in its own goroutine so the
// transition is never held up by the pass. When a sync interval is
// configured, pending actions are also synced periodically while online.
func (c *Coordinator) Start(ctx context.Context, source ConnectivitySource) error {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return errors.New("sync coordinator already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.runCtx = runCtx
	c.cancel = cancel
	c.running = true
	c.runMu.Unlock()

	if err := c.Refresh(runCtx); err != nil {
		c.logger.Debug("initial refresh failed", logging.Error(err))
	}

	if source != nil {
		current := source.Current()
		c.setConnectivity(current.Online, current.Description)
		transitions, unsubscribe := source.Subscribe()
		c.wg.Add(1)
		go c.watchConnectivity(runCtx, transitions, unsubscribe)
		if current.Online && c.autoSync && c.State().PendingCount > 0 {
			c.launchSync(runCtx, "startup")
		}
	}

	if c.interval > 0 {
		c.wg.Add(1)
		go c.runPeriodic(runCtx, source)
	}

	c.logger.Info("sync coordinator started",
		logging.String(logging.FieldEventType, "syncer_started"),
		logging.Bool("auto_sync", c.autoSync),
		logging.Duration("interval", c.interval),
	)
	return nil
}

// Stop cancels background work and waits for any running pass to return.
func (c *Coordinator) Stop() {
	c.runMu.Lock()
	if !c.running {
		c.runMu.Unlock()
		return
	}
	cancel := c.cancel
	c.running = false
	c.runCtx, c.cancel = nil, nil
	c.runMu.Unlock()

	cancel()
	c.wg.Wait()
}

func (c *Coordinator) watchConnectivity(ctx context.Context, transitions <-chan connectivity.Transition, unsubscribe func()) {
	defer c.wg.Done()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case transition, ok := <-transitions:
			if !ok {
				return
			}
			c.handleTransition(ctx, transition)
		}
	}
}

func (c *Coordinator) handleTransition(ctx context.Context, transition connectivity.Transition) {
	c.setConnectivity(transition.Current.Online, transition.Current.Description)
	if !transition.CameOnline() {
		return
	}
	pending := c.State().PendingCount
	c.logger.Info("connectivity restored",
		logging.String(logging.FieldEventType, "connectivity_restored"),
		logging.String("description", transition.Current.Description),
		logging.Int("pending", pending),
	)
	c.publish(ctx, notifications.EventConnectivityRestored, notifications.Payload{"pending": pending})
	if c.autoSync {
		c.launchSync(ctx, "reconnect")
	}
}

// TriggerSync starts a background full pass tied to the coordinator's
// lifetime, so Stop waits for it. It reports false when the coordinator is
// not running.
func (c *Coordinator) TriggerSync(trigger string) bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if !c.running {
		return false
	}
	c.launchSync(c.runCtx, trigger)
	return true
}

func (c *Coordinator) launchSync(ctx context.Context, trigger string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result := c.PerformFullSync(ctx)
		c.logger.Debug("automatic sync finished",
			logging.String("trigger", trigger),
			logging.Bool("skipped", result.Skipped),
			logging.Int("completed", result.Completed),
			logging.Int("failed", result.Failed),
		)
	}()
}

func (c *Coordinator) runPeriodic(ctx context.Context, source ConnectivitySource) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if source != nil && !source.Current().Online {
				continue
			}
			if err := c.Refresh(ctx); err != nil {
				continue
			}
			if c.State().PendingCount == 0 {
				continue
			}
			c.PerformFullSync(ctx)
		}
	}
}
