package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spigell/cv-shortlister/internal/ai"
)

const (
	BackendProcess = "process"
	BackendGemini  = "gemini"

	DefaultCommand = "ollama"
)

// DefaultArgs are passed to DefaultCommand before the prompt.
var DefaultArgs = []string{"run", "llama3.2:latest"}

// Response is what one oracle invocation produced.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Backend runs a prompt through an external reasoning process.
type Backend interface {
	Name() string
	Model() string
	// Available returns an error when the backend cannot be invoked at all.
	Available() error
	// Invoke runs the prompt once. A process that ran and failed is reported
	// through Response.ExitCode; the error is reserved for failures to start.
	Invoke(ctx context.Context, prompt string) (Response, error)
}

// Process invokes a local command with the prompt as its last argument.
type Process struct {
	command string
	args    []string
	timeout time.Duration

	lookPath func(string) (string, error)
}

// NewProcess returns a process backend. An empty command selects the
// default ollama invocation; a zero timeout waits for the process forever.
func NewProcess(command string, args []string, timeout time.Duration) *Process {
	if command = strings.TrimSpace(command); command == "" {
		command = DefaultCommand
		if len(args) == 0 {
			args = DefaultArgs
		}
	}

	return &Process{
		command:  command,
		args:     append([]string(nil), args...),
		timeout:  timeout,
		lookPath: exec.LookPath,
	}
}

func (p *Process) Name() string { return BackendProcess }

// Model reports the command line without the prompt.
func (p *Process) Model() string {
	return strings.TrimSpace(p.command + " " + strings.Join(p.args, " "))
}

func (p *Process) Available() error {
	if _, err := p.lookPath(p.command); err != nil {
		return fmt.Errorf("%s is not installed or not found in PATH: %w", p.command, err)
	}
	return nil
}

func (p *Process) Invoke(ctx context.Context, prompt string) (Response, error) {
	path, err := p.lookPath(p.command)
	if err != nil {
		return Response{}, fmt.Errorf("locate %s: %w", p.command, err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), p.args...), prompt)
	cmd := exec.CommandContext(ctx, path, args...)
	// Children that inherit the output pipes must not keep Run blocked after a kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Response{}, fmt.Errorf("run %s: %w", p.command, ctxErr)
	}

	resp := Response{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		resp.ExitCode = exitErr.ExitCode()
	default:
		return Response{}, fmt.Errorf("run %s: %w", p.command, err)
	}

	return resp, nil
}

// Gemini answers prompts with a hosted Gemini model. It is unavailable when
// no API key was configured and therefore no generator exists.
type Gemini struct {
	generator ai.Generator
}

func NewGemini(generator ai.Generator) *Gemini {
	return &Gemini{generator: generator}
}

func (g *Gemini) Name() string { return BackendGemini }

func (g *Gemini) Model() string {
	if g.generator == nil {
		return ""
	}
	return g.generator.Model()
}

func (g *Gemini) Available() error {
	if g.generator == nil {
		return errors.New("gemini api key is not configured")
	}
	return nil
}

// Invoke maps API failures to a failed run with the error text on stderr.
func (g *Gemini) Invoke(ctx context.Context, prompt string) (Response, error) {
	if err := g.Available(); err != nil {
		return Response{}, err
	}

	out, err := g.generator.GenerateContent(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		return Response{Stderr: err.Error(), ExitCode: 1}, nil
	}

	return Response{Stdout: out}, nil
}
