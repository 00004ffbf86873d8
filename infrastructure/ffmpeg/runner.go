package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// CommandRunner defines the interface for running external commands
// This allows mocking exec.Command in tests
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Pipe is an extra descriptor handed to a child process. Exactly one of
// Reader (child reads it) or Writer (child writes it) is set.
type Pipe struct {
	Reader io.Reader
	Writer io.Writer
}

// StreamSpec describes a long-running command wired to pipes.
// Extra[i] is available to the child as pipe:(3+i).
type StreamSpec struct {
	Name   string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Extra  []Pipe
}

// Process is a started command
type Process interface {
	Wait() error
}

// Streamer starts long-running commands
type Streamer interface {
	Start(ctx context.Context, spec StreamSpec) (Process, error)
}

// ExecCommandRunner is the production implementation using os/exec
type ExecCommandRunner struct{}

// Run executes a command and returns any error
func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Output executes a command and returns its output
func (r *ExecCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// Start launches spec and copies the extra pipes in the background
func (r *ExecCommandRunner) Start(ctx context.Context, spec StreamSpec) (Process, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = os.Stderr

	// child ends are closed after start, parent ends by the copiers
	var childEnds, parentEnds []*os.File
	var feeders, drainers []func()
	for i, p := range spec.Extra {
		pr, pw, err := os.Pipe()
		if err != nil {
			closeFiles(childEnds)
			closeFiles(parentEnds)
			return nil, fmt.Errorf("failed to create pipe %d: %w", 3+i, err)
		}

		if p.Reader != nil {
			cmd.ExtraFiles = append(cmd.ExtraFiles, pr)
			childEnds = append(childEnds, pr)
			parentEnds = append(parentEnds, pw)
			src := p.Reader
			feeders = append(feeders, func() {
				_, _ = io.Copy(pw, src)
				pw.Close()
			})
			continue
		}

		cmd.ExtraFiles = append(cmd.ExtraFiles, pw)
		childEnds = append(childEnds, pw)
		parentEnds = append(parentEnds, pr)
		dst := p.Writer
		drainers = append(drainers, func() {
			_, _ = io.Copy(dst, pr)
			pr.Close()
		})
	}

	if err := cmd.Start(); err != nil {
		closeFiles(childEnds)
		closeFiles(parentEnds)
		return nil, err
	}
	closeFiles(childEnds)

	// feeders end with their source, which may outlive the child
	for _, fn := range feeders {
		go fn()
	}

	proc := &execProcess{cmd: cmd}
	for _, fn := range drainers {
		proc.wg.Add(1)
		go func(fn func()) {
			defer proc.wg.Done()
			fn()
		}(fn)
	}
	return proc, nil
}

type execProcess struct {
	cmd *exec.Cmd
	wg  sync.WaitGroup
}

// Wait waits for the command and for output pipes to drain
func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	p.wg.Wait()
	return err
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// Ensure ExecCommandRunner implements both runner interfaces
var (
	_ CommandRunner = (*ExecCommandRunner)(nil)
	_ Streamer      = (*ExecCommandRunner)(nil)
)
