package cli

import (
	"errors"
	"fmt"

	"github.com/vburojevic/pricewatch/internal/output"
	"github.com/vburojevic/pricewatch/internal/session"
)

// outputErrorCommon writes an error record in the selected format and
// returns an error so main exits non-zero.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	if globals != nil && globals.Format == "ndjson" {
		_ = output.NewNDJSONWriter(globals.Stdout).WriteError(code, message, hint...)
	} else if globals != nil {
		_ = output.NewTextWriter(globals.Stderr).WriteError(code, message, hint...)
	}
	return errors.New(message)
}

// outputStartError maps a session start failure onto an error record.
func outputStartError(globals *Globals, err error) error {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		return outputErrorCommon(globals, verr.Code, verr.Message, verr.Hint)
	case errors.Is(err, session.ErrAlreadyRunning):
		return outputErrorCommon(globals, "ALREADY_RUNNING", err.Error())
	default:
		return outputErrorCommon(globals, "START_FAILED", fmt.Sprintf("could not start session: %v", err))
	}
}
