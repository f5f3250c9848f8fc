package docker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Executor wraps docker CLI operations.
type Executor struct {
	Binary string
	logger *log.Logger
}

// NewExecutor returns an executor for the given docker binary ("docker" when empty).
func NewExecutor(binary string, logger *log.Logger) *Executor {
	if binary == "" {
		binary = "docker"
	}
	return &Executor{
		Binary: binary,
		logger: logger.WithPrefix("docker"),
	}
}

// CheckAvailability ensures the docker CLI and daemon are reachable.
func (e *Executor) CheckAvailability(ctx context.Context) error {
	if _, err := exec.LookPath(e.Binary); err != nil {
		return fmt.Errorf("%s command not found in PATH", e.Binary)
	}
	cmd := exec.CommandContext(ctx, e.Binary, "version", "--format", "{{.Server.Version}}")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker daemon is not running or not accessible: %w", err)
	}
	return nil
}

// Run executes docker with the provided arguments and forwards every output
// line to the logger at debug level. The last lines of output are attached to
// the returned error.
func (e *Executor) Run(ctx context.Context, args ...string) error {
	e.logger.Debug("running docker", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	tail := newTailBuffer(20)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			line := scanner.Text()
			tail.add(line)
			e.logger.Debug(line)
		}
		_, _ = io.Copy(io.Discard, pr)
	}()

	err := cmd.Run()
	_ = pw.Close()
	wg.Wait()

	if err != nil {
		if out := tail.String(); out != "" {
			return fmt.Errorf("%w: %s", err, out)
		}
		return err
	}
	return nil
}

// Build builds contextDir into imageName for the given platform.
func (e *Executor) Build(ctx context.Context, imageName, contextDir, platform string) error {
	if imageName == "" || contextDir == "" {
		return errors.New("docker build requires an image name and a context directory")
	}
	args := []string{"build"}
	if platform != "" {
		args = append(args, "--platform", platform)
	}
	args = append(args, "-t", imageName, contextDir)
	if err := e.Run(ctx, args...); err != nil {
		return fmt.Errorf("docker build failed: %w", err)
	}
	e.logger.Info("built image", "image", imageName, "platform", platform)
	return nil
}

// RemoveImage deletes a local image. Missing images are not an error.
func (e *Executor) RemoveImage(ctx context.Context, imageName string) error {
	if err := e.Run(ctx, "image", "rm", "--force", imageName); err != nil {
		return fmt.Errorf("docker image rm failed: %w", err)
	}
	return nil
}

type tailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(strings.Join(t.lines, "\n"))
}
