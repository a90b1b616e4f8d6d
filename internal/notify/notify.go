// Package notify delivers outbound messages to the human. The messaging
// bridge itself is an external collaborator; this package only defines the
// interface and two small implementations. Failures and quota events are
// always reported outward; routine progress is not.
package notify

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Notifier sends one message to the human channel.
type Notifier interface {
	Send(message string) error
}

// LogNotifier writes messages to the log. Used when no bridge command is
// configured.
type LogNotifier struct {
	Log zerolog.Logger
}

// Send implements Notifier.
func (n *LogNotifier) Send(message string) error {
	n.Log.Info().Str("channel", "log").Msg(message)
	return nil
}

// CommandNotifier pipes each message to an external command's stdin, the
// hook point for the bridge process.
type CommandNotifier struct {
	Command string
}

// Send implements Notifier.
func (n *CommandNotifier) Send(message string) error {
	parts := strings.Fields(n.Command)
	if len(parts) == 0 {
		return fmt.Errorf("notify command is empty")
	}
	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Stdin = strings.NewReader(message)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify command: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}
