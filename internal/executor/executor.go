// Package executor invokes the external LLM command tool as a supervised
// child process and classifies its output.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Request is one unit of work dispatched to the tool.
type Request struct {
	Prompt  string
	Workdir string
	Permits []string // side-effect categories the tool may perform
}

// Usage holds the token counters reported by the tool, when available.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Total returns the combined token count.
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// Response is the decoded tool output.
type Response struct {
	Text     string
	Usage    Usage
	ExitCode int
	Duration time.Duration
}

// Runner executes requests. Interface for testing; the loop only ever sees
// this surface.
type Runner interface {
	Run(ctx context.Context, req Request) (*Response, error)
}

// CommandRunner runs the configured tool binary as a child process. The
// child runs supervised rather than inline so an operator interrupt is
// intercepted by the parent and escalated instead of killing the child
// immediately.
type CommandRunner struct {
	Command string
	Flags   []string
	Timeout time.Duration
}

// NewCommandRunner creates a CommandRunner.
func NewCommandRunner(command string, flags []string, timeout time.Duration) *CommandRunner {
	return &CommandRunner{Command: command, Flags: flags, Timeout: timeout}
}

// Run invokes the tool with the composed prompt. The tool may answer with
// plain text or with a structured JSON payload carrying a result string and
// token-usage counters; both shapes are tolerated.
func (r *CommandRunner) Run(ctx context.Context, req Request) (*Response, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append([]string{}, r.Flags...)
	for _, p := range req.Permits {
		args = append(args, "--allow", p)
	}
	args = append(args, "--print", req.Prompt)

	cmd := exec.CommandContext(ctx, r.Command, args...)
	if req.Workdir != "" {
		cmd.Dir = req.Workdir
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	resp := decodeOutput(out.String())
	resp.Duration = time.Since(start)

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			resp.ExitCode = exitErr.ExitCode()
			// Non-zero exit is a classification concern, not a transport
			// error; the output is still meaningful.
			return resp, nil
		}
		if ctx.Err() != nil {
			return resp, fmt.Errorf("%s: %w", r.Command, ctx.Err())
		}
		return nil, fmt.Errorf("run %s: %w", r.Command, err)
	}
	return resp, nil
}

// structuredPayload is the JSON shape the tool may emit instead of plain
// text.
type structuredPayload struct {
	Result string `json:"result"`
	Usage  Usage  `json:"usage"`
}

// decodeOutput accepts either plain text or the structured payload.
func decodeOutput(raw string) *Response {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var payload structuredPayload
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && payload.Result != "" {
			return &Response{Text: payload.Result, Usage: payload.Usage}
		}
	}
	return &Response{Text: trimmed}
}
