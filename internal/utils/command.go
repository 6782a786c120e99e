package utils

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// CommandResult carries the captured output of one external command.
type CommandResult struct {
	Stdout string
	Stderr string
}

/**
 * Run an external command and capture its output
 * @param {context.Context} ctx - Cancels the command when done
 * @param {string} dir - Working directory, empty for inherited
 * @param {[]string} extraEnv - KEY=VALUE pairs appended to the inherited environment
 * @returns {CommandResult, error} Captured stdout/stderr and the run error
 */
func RunCommand(ctx context.Context, dir string, extraEnv []string, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}, err
}

/**
 * Run a command feeding the given string to stdin
 * @description
 * - Used for the privileged hosts helper (sudo -S reads the password
 *   from stdin)
 */
func RunCommandWithStdin(ctx context.Context, stdin string, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewBufferString(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}, err
}
