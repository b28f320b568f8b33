// Package process supervises helper subprocesses such as the messaging relays.
//
// Features:
//   - Each child runs in its own process group
//   - Stop sends SIGTERM to the group, then SIGKILL after a grace period
//   - Cancelling the start context stops the child the same way
//   - Child stdout/stderr is logged line by line at debug level
//
// Managers are single-use and never restart a child. A helper that dies
// stays dead and is reported through Status and LastError.
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:            "relay-cmd",
//	    Binary:          "/usr/sbin/mosquitto",
//	    Args:            []string{"-c", "/tmp/pocs-relays/cmd.conf"},
//	    GracefulTimeout: 5 * time.Second,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
