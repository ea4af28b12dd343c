package notify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Command runs a shell command per alert. The alert is exported as
// PRICEWATCH_* variables and the text body is written to stdin.
type Command struct {
	command string
}

func NewCommand(command string) *Command {
	return &Command{command: command}
}

func (c *Command) Name() string { return "command" }

func (c *Command) Deliver(ctx context.Context, msg Message) error {
	a := msg.Alert
	cmd := exec.CommandContext(ctx, "sh", "-c", c.command)
	cmd.Env = append(os.Environ(),
		"PRICEWATCH_KIND="+string(a.Kind),
		"PRICEWATCH_SESSION="+a.SessionID,
		"PRICEWATCH_RECIPIENT="+msg.Recipient,
		"PRICEWATCH_SUBJECT="+msg.Subject,
		"PRICEWATCH_TARGET="+a.Target,
		"PRICEWATCH_OLD="+a.Old.Amount(),
		"PRICEWATCH_NEW="+a.New.Amount(),
		"PRICEWATCH_DELTA="+a.Delta.Amount(),
		"PRICEWATCH_CHECK="+strconv.Itoa(a.Check),
	)
	cmd.Stdin = strings.NewReader(msg.Text)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(out.String()); detail != "" {
			return fmt.Errorf("command %q: %w: %s", c.command, err, detail)
		}
		return fmt.Errorf("command %q: %w", c.command, err)
	}
	return nil
}
