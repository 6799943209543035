/*
Copyright (C) 2026 Filmnet Labs

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mediaengine wraps the ffmpeg and ffprobe binaries: process
// supervision, encoder capability detection, duration probing and the
// command lines for the broadcaster and feeder roles.
package mediaengine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ProcessState represents the current state of an ffmpeg process.
type ProcessState string

const (
	ProcessStateIdle     ProcessState = "idle"
	ProcessStateStarting ProcessState = "starting"
	ProcessStateRunning  ProcessState = "running"
	ProcessStateStopping ProcessState = "stopping"
	ProcessStateStopped  ProcessState = "stopped"
	ProcessStateFailed   ProcessState = "failed"
)

// Handle is the control surface the orchestrator holds over a launched
// process. The concrete type is *Process; tests substitute fakes.
type Handle interface {
	// StdinPipe returns the process stdin, or nil when the process was
	// launched without PipeStdin.
	StdinPipe() io.WriteCloser
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// ExitErr reports the exit error, valid after Done is closed.
	ExitErr() error
	Stop() error
	Kill()
	State() ProcessState
	PID() int
}

// Launcher starts a process from a config. The orchestrator takes one so
// tests can run without ffmpeg installed.
type Launcher func(ctx context.Context, cfg ProcessConfig, logger zerolog.Logger) (Handle, error)

// ProcessConfig describes one ffmpeg invocation.
type ProcessConfig struct {
	ID   string
	Bin  string
	Args []string

	// Stdout receives the process output. The feeder sets this to the
	// broadcaster's stdin so mpegts flows between the two.
	Stdout io.Writer

	// PipeStdin opens a stdin pipe on the process. The broadcaster reads
	// its input stream from it.
	PipeStdin bool
}

// Process manages a single ffmpeg child with monitoring, modeled on the
// state machine used elsewhere in the suite for pipeline children.
type Process struct {
	id     string
	cmd    *exec.Cmd
	logger zerolog.Logger
	cancel context.CancelFunc

	mu        sync.RWMutex
	state     ProcessState
	startTime time.Time
	exitError error
	killed    bool

	stdin  io.WriteCloser
	stderr io.ReadCloser
	done   chan struct{}
}

// Launch creates and starts a process. This is the Launcher used in
// production.
func Launch(ctx context.Context, cfg ProcessConfig, logger zerolog.Logger) (Handle, error) {
	procCtx, cancel := context.WithCancel(ctx)
	p := &Process{
		id:     cfg.ID,
		logger: logger.With().Str("ffmpeg_process", cfg.ID).Logger(),
		cancel: cancel,
		state:  ProcessStateIdle,
		done:   make(chan struct{}),
	}
	if err := p.start(procCtx, cfg); err != nil {
		cancel()
		return nil, err
	}
	return p, nil
}

func (p *Process) start(ctx context.Context, cfg ProcessConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.setState(ProcessStateStarting)

	p.cmd = exec.CommandContext(ctx, cfg.Bin, cfg.Args...)
	if cfg.Stdout != nil {
		p.cmd.Stdout = cfg.Stdout
	}

	var err error
	if cfg.PipeStdin {
		p.stdin, err = p.cmd.StdinPipe()
		if err != nil {
			p.setState(ProcessStateFailed)
			return fmt.Errorf("failed to create stdin pipe: %w", err)
		}
	}

	p.stderr, err = p.cmd.StderrPipe()
	if err != nil {
		p.setState(ProcessStateFailed)
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		p.setState(ProcessStateFailed)
		return fmt.Errorf("failed to start %s: %w", cfg.Bin, err)
	}

	p.startTime = time.Now()
	p.setState(ProcessStateRunning)

	p.logger.Debug().
		Int("pid", p.cmd.Process.Pid).
		Strs("args", cfg.Args).
		Msg("ffmpeg process started")

	go p.monitorStderr()
	go p.monitorProcess()

	return nil
}

// StdinPipe returns the process stdin pipe, nil unless PipeStdin was set.
func (p *Process) StdinPipe() io.WriteCloser {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stdin
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitErr returns the process exit error, valid once Done is closed.
func (p *Process) ExitErr() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitError
}

// Stop requests a graceful shutdown, escalating to a kill when the process
// does not exit within five seconds.
func (p *Process) Stop() error {
	p.mu.Lock()
	if p.state == ProcessStateStopped || p.state == ProcessStateFailed {
		p.mu.Unlock()
		return nil
	}
	p.setState(ProcessStateStopping)
	cmd := p.cmd
	p.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			p.logger.Warn().Err(err).Msg("failed to send interrupt signal")
		}

		select {
		case <-p.done:
		case <-time.After(5 * time.Second):
			p.logger.Warn().Msg("graceful shutdown timeout, force killing")
			if err := cmd.Process.Kill(); err != nil {
				return fmt.Errorf("failed to kill process: %w", err)
			}
			<-p.done
		}
	}

	p.cancel()
	return nil
}

// Kill terminates the process immediately. Used at slot boundaries where
// the deadline leaves no room for a graceful exit.
func (p *Process) Kill() {
	p.mu.Lock()
	p.killed = true
	cmd := p.cmd
	p.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			p.logger.Debug().Err(err).Msg("kill failed, process likely gone")
		}
	}
	p.cancel()
}

// State returns the current process state.
func (p *Process) State() ProcessState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// PID returns the process ID, 0 before the process started.
func (p *Process) PID() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}

// Uptime returns how long the process has been running.
func (p *Process) Uptime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.startTime.IsZero() {
		return 0
	}
	return time.Since(p.startTime)
}

func (p *Process) setState(state ProcessState) {
	p.state = state
	p.logger.Debug().Str("state", string(state)).Msg("process state changed")
}

func (p *Process) monitorStderr() {
	scanner := bufio.NewScanner(p.stderr)
	for scanner.Scan() {
		p.logger.Trace().Str("line", scanner.Text()).Msg("ffmpeg output")
	}
}

func (p *Process) monitorProcess() {
	err := p.cmd.Wait()

	p.mu.Lock()
	if err != nil && p.state != ProcessStateStopping && !p.killed {
		p.exitError = err
		p.setState(ProcessStateFailed)
		p.logger.Debug().Err(err).Msg("ffmpeg process exited with error")
	} else {
		p.setState(ProcessStateStopped)
	}
	p.mu.Unlock()

	close(p.done)
}
