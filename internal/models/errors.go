package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy surfaced to the facade. The facade maps these to CLI
// messages and non-zero exits or to result objects for the front end.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrPasswordIncorrect = errors.New("PasswordIncorrect")
	// ErrNeedsAdmin carries the literal sentinel the front end matches on.
	ErrNeedsAdmin     = errors.New("needAdminPasswordToModifyHosts")
	ErrCorruptedState = errors.New("managed block markers are not paired; refusing to write, repair the file manually")
)

/**
 * DownloadError reports that every URL of a task failed
 * @property {[]string} failed_urls - Every URL tried, in order
 */
type DownloadError struct {
	TaskID     string
	FailedURLs []string
	LastErr    error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s failed on all %d urls (%s): %v",
		e.TaskID, len(e.FailedURLs), strings.Join(e.FailedURLs, ", "), e.LastErr)
}

func (e *DownloadError) Unwrap() error { return e.LastErr }

// InstallError reports a non-zero extraction or compilation step.
// Stderr is truncated so that it stays presentable in CLI output.
type InstallError struct {
	Step   string
	Stderr string
	Err    error
}

const installErrStderrLimit = 2048

func (e *InstallError) Error() string {
	stderr := e.Stderr
	if len(stderr) > installErrStderrLimit {
		stderr = stderr[:installErrStderrLimit] + "...(truncated)"
	}
	return fmt.Sprintf("install step '%s' failed: %v\n%s", e.Step, e.Err, stderr)
}

func (e *InstallError) Unwrap() error { return e.Err }
