package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// outputTailLines bounds how much tool output is attached to a failure.
const outputTailLines = 20

// CommandError reports a failed external tool together with the last lines it
// printed.
type CommandError struct {
	Binary string
	Err    error
	Tail   []string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Binary, e.Err)
	if len(e.Tail) > 0 {
		msg += ": " + strings.Join(e.Tail, " | ")
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// CommandExecutor runs binaries with os/exec, streaming stdout and stderr line
// by line to the callback.
type CommandExecutor struct{}

func (CommandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &CommandError{Binary: binary, Err: fmt.Errorf("start command: %w", err)}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		scanErr error
		once    sync.Once
		tail    = make([]string, 0, outputTailLines)
	)

	forward := func(line string) {
		mu.Lock()
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			if len(tail) == outputTailLines {
				tail = append(tail[:0], tail[1:]...)
			}
			tail = append(tail, trimmed)
		}
		mu.Unlock()
		if onLine != nil {
			onLine(line)
		}
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return &CommandError{Binary: binary, Err: fmt.Errorf("scan output: %w", scanErr), Tail: tail}
	}
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return &CommandError{Binary: binary, Err: err, Tail: tail}
	}
	return nil
}
