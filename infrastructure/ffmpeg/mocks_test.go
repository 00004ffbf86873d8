package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// mockRunner answers Output calls from a table keyed by "name args..."
type mockRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   []string
}

func (m *mockRunner) key(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := m.Output(ctx, name, args...)
	return err
}

func (m *mockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	k := m.key(name, args)
	m.calls = append(m.calls, k)
	if err, ok := m.errs[k]; ok {
		return nil, err
	}
	if out, ok := m.outputs[k]; ok {
		return out, nil
	}
	return nil, errors.New("executable file not found")
}

// mockStreamer runs behave in place of a child process
type mockStreamer struct {
	mu     sync.Mutex
	specs  []StreamSpec
	behave func(ctx context.Context, spec StreamSpec) error
	err    error
}

func (m *mockStreamer) Start(ctx context.Context, spec StreamSpec) (Process, error) {
	m.mu.Lock()
	m.specs = append(m.specs, spec)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	p := &mockProcess{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		if m.behave != nil {
			p.err = m.behave(ctx, spec)
		}
	}()
	return p, nil
}

func (m *mockStreamer) spec(i int) StreamSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.specs[i]
}

func (m *mockStreamer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.specs)
}

type mockProcess struct {
	done chan struct{}
	err  error
}

func (p *mockProcess) Wait() error {
	<-p.done
	return p.err
}

func hasArgs(args []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		match := true
		for j := range seq {
			if args[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
