package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"steward/pkg/logging"
)

// Run starts the controller and the HTTP server, then blocks until the
// context is canceled or an interrupt arrives. Shutdown is graceful: the
// server drains, the watchers stop, and in-flight passes finish.
func (a *Application) Run(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		logging.Error("App", err, "Failed to start controller")
		return err
	}

	if a.server != nil {
		if err := a.server.Start(); err != nil {
			_ = a.manager.Stop()
			return err
		}
	}

	// Running under systemd with Type=notify, this flips the unit to
	// active; elsewhere it is a no-op.
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Debug("App", "systemd notify unavailable: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logging.Info("App", "Received %s, shutting down", sig)
	case <-ctx.Done():
		logging.Info("App", "Context canceled, shutting down")
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.server != nil {
		if err := a.server.Stop(context.Background()); err != nil {
			logging.Error("App", err, "Error stopping HTTP server")
		}
	}
	return a.manager.Stop()
}
