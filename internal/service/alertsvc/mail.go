// internal/service/alertsvc/mail.go

package alertsvc

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"essg/internal/apperr"
)

// dispatchTimeout is how long the assembler waits for the mail subprocess
// to exit before treating it as a DispatchError.
const dispatchTimeout = 10 * time.Second

// Mailer invokes the external mail-submission agent: the alert body on
// its standard input, the recipient list as arguments.
type Mailer struct {
	Command string
}

// Send pipes body into the configured subprocess with recipients as
// arguments and waits up to 10 seconds for it to exit. A DispatchError is
// returned on failure or timeout; callers log it and keep the alert file
// on disk regardless.
func (m *Mailer) Send(ctx context.Context, body string, recipients []string) error {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.Command, recipients...)
	cmd.Stdin = bytes.NewBufferString(body)

	if err := cmd.Run(); err != nil {
		return &apperr.DispatchError{Err: err}
	}
	return nil
}
