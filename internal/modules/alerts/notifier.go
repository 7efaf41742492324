// Package alerts delivers desktop notifications ahead of upcoming news
// events, with durable dedup so restarts never double-notify.
package alerts

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// Permission is the notifier's delivery capability state.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notifier abstracts the delivery channel for event alerts.
type Notifier interface {
	// Permission reports whether notifications can currently be delivered.
	Permission() Permission
	// Notify delivers a single notification.
	Notify(ctx context.Context, title, body string) error
}

// CommandNotifier shells out to a desktop notification command
// (notify-send by default). Permission is denied when the command is not
// installed.
type CommandNotifier struct {
	command string
	log     zerolog.Logger
}

// NewCommandNotifier creates a notifier backed by the given command.
func NewCommandNotifier(command string, log zerolog.Logger) *CommandNotifier {
	return &CommandNotifier{
		command: command,
		log:     log.With().Str("component", "notifier").Logger(),
	}
}

// Permission checks whether the notification command is available.
func (n *CommandNotifier) Permission() Permission {
	if _, err := exec.LookPath(n.command); err != nil {
		return PermissionDenied
	}
	return PermissionGranted
}

// Notify runs the notification command.
func (n *CommandNotifier) Notify(ctx context.Context, title, body string) error {
	cmd := exec.CommandContext(ctx, n.command, title, body)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", n.command, err, out)
	}
	n.log.Debug().Str("title", title).Msg("Notification delivered")
	return nil
}
