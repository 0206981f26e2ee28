// Package docker implements junebench.ContainerBackend against a local
// Docker Engine using the Docker SDK client.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/rl337/junebench"
)

// Backend drives the Docker Engine API on behalf of a Sandbox. One Backend
// may be shared across many containers; it holds no per-container state.
type Backend struct {
	cli    *client.Client
	logger *slog.Logger
}

// New connects to the Docker Engine using the standard DOCKER_HOST /
// DOCKER_CERT_PATH environment, negotiating the API version against the
// daemon. The caller is responsible for calling Close when done.
func New(logger *slog.Logger) (*Backend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: connect: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cli: cli, logger: logger}, nil
}

// Close releases the underlying Docker client connection.
func (b *Backend) Close() error {
	return b.cli.Close()
}

// Create removes any stale container with name, then creates a fresh one
// bind-mounting hostWorkspace at /workspace with caps applied. The container
// is left in the "created" state; Start must be called separately.
func (b *Backend) Create(ctx context.Context, name, hostWorkspace string, caps junebench.Caps) (string, error) {
	if err := b.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		if !client.IsErrNotFound(err) {
			b.logger.Warn("docker: remove stale container failed", "name", name, "error", err)
		}
	}

	image := caps.BaseImage
	if image == "" {
		image = "python:3.11-slim"
	}

	var networkMode container.NetworkMode = "bridge"
	if caps.NetworkDisabled {
		networkMode = "none"
	}

	hostConfig := &container.HostConfig{
		NetworkMode: networkMode,
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: hostWorkspace,
				Target: "/workspace",
			},
		},
	}
	if caps.MaxMemory != "" {
		bytesLimit, err := parseMemory(caps.MaxMemory)
		if err != nil {
			return "", fmt.Errorf("docker: parse MaxMemory %q: %w", caps.MaxMemory, err)
		}
		hostConfig.Resources.Memory = bytesLimit
	}
	if caps.MaxCPU > 0 {
		hostConfig.Resources.NanoCPUs = int64(caps.MaxCPU * 1e9)
	}

	resp, err := b.cli.ContainerCreate(ctx, &container.Config{
		Image:        image,
		Cmd:          []string{"sleep", "infinity"},
		WorkingDir:   "/workspace",
		Tty:          false,
		ExposedPorts: nat.PortSet{},
	}, hostConfig, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("docker: create container: %w", err)
	}
	return resp.ID, nil
}

func (b *Backend) Start(ctx context.Context, containerID string) error {
	if err := b.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("docker: start container: %w", err)
	}
	return nil
}

// Exec runs cmd via "sh -c" inside the container's workdir. Unlike Create
// and Start, exec failures inside the container (non-zero exit, timeout)
// are reported through ExecResult rather than the error return; the error
// return is reserved for Docker API/transport failures. On timeout Exec
// stops waiting and reports TimedOut; the process inside the container is
// not killed.
func (b *Backend) Exec(ctx context.Context, containerID, cmd, workdir string, timeout time.Duration) (junebench.ExecResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	created, err := b.cli.ContainerExecCreate(execCtx, containerID, container.ExecOptions{
		Cmd:          []string{"sh", "-c", cmd},
		WorkingDir:   workdir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return junebench.ExecResult{}, fmt.Errorf("docker: exec create: %w", err)
	}

	start := time.Now()
	attached, err := b.cli.ContainerExecAttach(execCtx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return junebench.ExecResult{}, fmt.Errorf("docker: exec attach: %w", err)
	}
	defer attached.Close()

	var stdout, stderr bytes.Buffer
	copyErr := make(chan error, 1)
	go func() {
		_, err := demuxCopy(&stdout, &stderr, attached.Reader)
		copyErr <- err
	}()

	var timedOut bool
	select {
	case <-execCtx.Done():
		timedOut = true
	case err := <-copyErr:
		if err != nil {
			return junebench.ExecResult{}, fmt.Errorf("docker: exec read output: %w", err)
		}
	}

	duration := time.Since(start).Seconds()

	inspect, err := b.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return junebench.ExecResult{}, fmt.Errorf("docker: exec inspect: %w", err)
	}

	return junebench.ExecResult{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		ReturnCode:      inspect.ExitCode,
		DurationSeconds: duration,
		TimedOut:        timedOut,
	}, nil
}

// Archive returns a tar stream of path inside the container, exactly as
// CopyFromContainer does.
func (b *Backend) Archive(ctx context.Context, containerID, path string) (io.ReadCloser, error) {
	rc, _, err := b.cli.CopyFromContainer(ctx, containerID, path)
	if err != nil {
		return nil, fmt.Errorf("docker: copy from container: %w", err)
	}
	return rc, nil
}

func (b *Backend) Stop(ctx context.Context, containerID string, grace time.Duration) error {
	seconds := int(grace.Seconds())
	if err := b.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &seconds}); err != nil {
		return fmt.Errorf("docker: stop container: %w", err)
	}
	return nil
}

func (b *Backend) Remove(ctx context.Context, containerID string) error {
	if err := b.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("docker: remove container: %w", err)
	}
	return nil
}

// demuxCopy splits a multiplexed container exec stream into stdout/stderr
// using the Docker stdcopy framing (8-byte header per frame).
func demuxCopy(stdout, stderr *bytes.Buffer, r io.Reader) (int64, error) {
	var written int64
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return written, nil
			}
			return written, err
		}
		size := int64(header[4])<<24 | int64(header[5])<<16 | int64(header[6])<<8 | int64(header[7])
		dst := stdout
		if header[0] == 2 {
			dst = stderr
		}
		n, err := io.CopyN(dst, r, size)
		written += n
		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}
	}
}

// parseMemory converts Docker-style memory strings ("2g", "512m", "1024k")
// into bytes. Bare numbers are treated as bytes.
func parseMemory(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty memory value")
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'g':
		mult = 1 << 30
		s = s[:len(s)-1]
	case 'm':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'k':
		mult = 1 << 10
		s = s[:len(s)-1]
	}
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid memory value %q", s)
	}
	return n * mult, nil
}

var _ junebench.ContainerBackend = (*Backend)(nil)
