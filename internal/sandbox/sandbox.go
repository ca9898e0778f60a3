// Package sandbox launches a disposable web-VNC console container for local
// development and demos, so `cyroid connect --sandbox` works without a real
// range backend.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
)

const (
	defaultImage = "theasp/novnc:latest"
	consolePort  = "8080/tcp"
)

// Instance describes a running sandbox console.
type Instance struct {
	ContainerID string
	SessionID   string
	Port        string
	ConsoleURL  string
}

// Launcher creates and tears down sandbox console containers.
type Launcher struct {
	client *client.Client
	image  string
}

// NewLauncher connects to the local Docker daemon.
func NewLauncher() (*Launcher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Launcher{client: cli, image: defaultImage}, nil
}

// EnsureImage pulls the console image if it is not present locally.
func (l *Launcher) EnsureImage(ctx context.Context) error {
	images, err := l.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == l.image {
				return nil
			}
		}
	}

	reader, err := l.client.ImagePull(ctx, l.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", l.image, err)
	}
	defer func() { _ = reader.Close() }()
	_, err = io.Copy(io.Discard, reader)
	return err
}

// Launch starts a console container on an ephemeral host port and waits for
// its HTTP endpoint to answer.
func (l *Launcher) Launch(ctx context.Context) (*Instance, error) {
	sessionID := uuid.NewString()

	containerConfig := &container.Config{
		Image: l.image,
		Labels: map[string]string{
			"session-id": sessionID,
			"managed-by": "cyroid",
		},
		ExposedPorts: nat.PortSet{
			consolePort: struct{}{},
		},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			consolePort: []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: "0"},
			},
		},
	}

	resp, err := l.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil,
		fmt.Sprintf("cyroid-sandbox-%s", sessionID[:8]))
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}

	if err := l.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	inspect, err := l.client.ContainerInspect(ctx, resp.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect container: %w", err)
	}
	bindings := inspect.NetworkSettings.Ports[consolePort]
	if len(bindings) == 0 {
		return nil, fmt.Errorf("container %s has no host port binding", resp.ID[:12])
	}
	port := bindings[0].HostPort

	if err := waitForConsole(ctx, port); err != nil {
		return nil, fmt.Errorf("console failed to become ready: %w", err)
	}

	return &Instance{
		ContainerID: resp.ID,
		SessionID:   sessionID,
		Port:        port,
		ConsoleURL:  fmt.Sprintf("http://127.0.0.1:%s/vnc.html", port),
	}, nil
}

// Stop stops and removes the sandbox container.
func (l *Launcher) Stop(ctx context.Context, containerID string) error {
	timeout := 10
	if err := l.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("stop container: %w", err)
	}
	if err := l.client.ContainerRemove(ctx, containerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("remove container: %w", err)
	}
	return nil
}

// IsHealthy reports whether the container is still running.
func (l *Launcher) IsHealthy(ctx context.Context, containerID string) bool {
	inspect, err := l.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return false
	}
	return inspect.State.Running
}

// Close releases the Docker client.
func (l *Launcher) Close() error {
	return l.client.Close()
}

func waitForConsole(ctx context.Context, port string) error {
	url := fmt.Sprintf("http://127.0.0.1:%s/", port)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; i < 20; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode < 500 {
				return nil
			}
		}
	}
	return fmt.Errorf("console on port %s not answering", port)
}
