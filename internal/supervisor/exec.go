package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

const (
	drainTimeout = time.Second
	maxLineBytes = 1024 * 1024
)

// IdentityEnv carries the 1-based pool slot into every child.
const IdentityEnv = "GAMELIFT_SDK_PROCESS_ID"

// ExecLauncher starts children with os/exec and forwards their output
// line by line, prefixed with the child's PID.
type ExecLauncher struct {
	Dir     string
	Command string
	Args    []string
	Stdout  io.Writer
	Stderr  io.Writer

	// Env is the base environment; nil means os.Environ().
	Env []string
}

func NewExecLauncher(dir, command string, args []string) *ExecLauncher {
	return &ExecLauncher{
		Dir:     dir,
		Command: command,
		Args:    args,
		Stdout:  &lockedWriter{w: os.Stdout},
		Stderr:  &lockedWriter{w: os.Stderr},
	}
}

func (l *ExecLauncher) Launch(identity int) (Process, error) {
	cmd := exec.Command(l.Command, l.Args...)
	cmd.Dir = l.Dir
	env := l.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append(append([]string{}, env...), IdentityEnv+"="+strconv.Itoa(identity))

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	startErr := cmd.Start()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	if startErr != nil {
		_ = stdoutR.Close()
		_ = stderrR.Close()
		return nil, fmt.Errorf("start %s: %w", l.Command, startErr)
	}

	p := &execProcess{cmd: cmd}
	pid := cmd.Process.Pid
	p.forwarders.Add(2)
	go p.forward(stdoutR, l.Stdout, fmt.Sprintf("[PID %d - STDOUT] ", pid))
	go p.forward(stderrR, l.Stderr, fmt.Sprintf("[PID %d - STDERR] ", pid))
	return p, nil
}

type execProcess struct {
	cmd        *exec.Cmd
	forwarders sync.WaitGroup
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

// Wait reaps the child, then gives the forwarders a moment to flush the
// last lines. Grandchildren that inherited the pipes do not hold it up.
func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()

	drained := make(chan struct{})
	go func() {
		p.forwarders.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drainTimeout):
	}

	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *execProcess) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *execProcess) forward(r io.ReadCloser, w io.Writer, prefix string) {
	defer p.forwarders.Done()
	defer r.Close()
	br := bufio.NewReaderSize(r, 64*1024)
	line := make([]byte, 0, 4096)
	for {
		chunk, isPrefix, err := br.ReadLine()
		// Lines past maxLineBytes are truncated; the rest of the line is skipped.
		if room := maxLineBytes - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		if err != nil {
			if len(line) > 0 {
				_, _ = io.WriteString(w, prefix+string(line)+"\n")
			}
			return
		}
		if !isPrefix {
			_, _ = io.WriteString(w, prefix+string(line)+"\n")
			line = line[:0]
		}
	}
}

// lockedWriter keeps lines from different children from interleaving.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
