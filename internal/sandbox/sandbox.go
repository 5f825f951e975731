// Package sandbox implements the Sandbox Executor (C3): running a
// single untrusted, validated fitness submission to completion inside
// an isolated, network-disabled, read-only-rootfs container with
// bounded resources, and translating its outcome into a result record
// or a structured error.
//
// Grounded on the isolated, auto-torn-down container lifecycle in
// tests/common/containers.go (build-once image cache, ContainerRequest
// / GenericContainer / WaitingFor / Terminate), adapted from a test
// fixture into a production isolation boundary for one-shot child
// processes rather than a long-lived service container.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/singleflight"

	"github.com/kthendral/optimizehub/internal/domain"
	"github.com/kthendral/optimizehub/internal/platform/logger"
)

// Executor is the concrete Sandbox Executor, satisfying
// catalog.SandboxExecutor structurally.
type Executor struct {
	log *logger.Logger
	cfg Config

	// imageGroup collapses concurrent first-use image pulls into one
	// (§4.3 "singleflight serializes the build once, cache path").
	// Unlike a sync.Once, a failed attempt does not poison every
	// subsequent call: the next Execute retries the pull.
	imageGroup  singleflight.Group
	imageCached atomic.Bool
}

// New builds a Sandbox Executor over cfg.
func New(log *logger.Logger, cfg Config) *Executor {
	return &Executor{log: log, cfg: cfg}
}

// Execute runs req to completion in an isolated container and returns
// its result or a structured error (§4.3 Protocol). It never returns a
// Go error; every failure mode is expressed as a *domain.JobError.
func (e *Executor) Execute(ctx context.Context, req domain.SandboxRequest) (*domain.Result, *domain.JobError) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.DefaultHardTimeout)
		defer cancel()
	}

	if jerr := e.ensureImage(ctx); jerr != nil {
		return nil, jerr
	}

	scratchDir, err := os.MkdirTemp("", "optimizehub-sandbox-*")
	if err != nil {
		return nil, domain.NewError(domain.KindContainer, fmt.Sprintf("sandbox: create scratch dir: %v", err))
	}
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			e.log.Warn("sandbox: scratch cleanup failed", "scratch_dir", scratchDir, "error", err.Error())
		}
	}()

	if err := writeScratch(scratchDir, req); err != nil {
		return nil, domain.NewError(domain.KindContainer, err.Error())
	}

	containerReq := testcontainers.ContainerRequest{
		Image: e.cfg.Image,
		Cmd:   []string{scratchMountPath + "/" + jobFileName},
		User:  "65534:65534",
		HostConfigModifier: func(hc *dockercontainer.HostConfig) {
			hc.NetworkMode = "none"
			hc.ReadonlyRootfs = true
			hc.Binds = []string{scratchDir + ":" + scratchMountPath + ":rw"}
			hc.Resources = dockercontainer.Resources{
				Memory:    e.cfg.MemoryBytes,
				CPUShares: e.cfg.CPUShares,
			}
			hc.Tmpfs = map[string]string{
				"/tmp": fmt.Sprintf("rw,size=%d", e.cfg.ScratchBytes),
			}
		},
		WaitingFor: wait.ForExit().WithExitTimeout(e.hardTimeout(ctx)),
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: containerReq,
		Started:          true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewError(domain.KindTimeout, "sandbox: deadline reached waiting for isolated child")
		}
		return nil, domain.NewError(domain.KindContainer, fmt.Sprintf("sandbox: launch isolated child: %v", err))
	}
	defer func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			e.log.Warn("sandbox: container terminate failed", "error", err.Error())
		}
	}()

	if jerr := e.resourceFailure(ctx, ctr); jerr != nil {
		return nil, jerr
	}

	raw, err := e.readLogs(ctx, ctr)
	if err != nil {
		return nil, domain.NewError(domain.KindParse, fmt.Sprintf("sandbox: read child output: %v", err))
	}
	return decodeChildOutput(raw)
}

// hardTimeout derives the remaining wall-clock budget from ctx, used as
// the container exit-wait deadline.
func (e *Executor) hardTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining > 0 {
			return remaining
		}
	}
	return e.cfg.DefaultHardTimeout
}

// resourceFailure inspects the exited container's state for an
// out-of-memory kill, which testcontainers surfaces as exit code 137
// (matching the standard SIGKILL-from-OOM-killer convention), reporting
// it as §4.3's `resource` kind rather than a generic container failure.
func (e *Executor) resourceFailure(ctx context.Context, ctr testcontainers.Container) *domain.JobError {
	state, err := ctr.State(ctx)
	if err != nil || state == nil {
		return nil
	}
	if state.OOMKilled || state.ExitCode == 137 {
		return domain.NewError(domain.KindResource, "sandbox: isolated child exceeded its memory limit")
	}
	return nil
}

// readLogs captures the isolated child's combined output stream, which
// carries exactly one JSON document per §6's serialization contract.
func (e *Executor) readLogs(ctx context.Context, ctr testcontainers.Container) ([]byte, error) {
	reader, err := ctr.Logs(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimSpace(string(data))), nil
}

// ensureImage guarantees the sandbox image is present locally before
// the first real container launch, collapsing concurrent first-use
// pulls into a single attempt (§4.3).
func (e *Executor) ensureImage(ctx context.Context) *domain.JobError {
	if e.imageCached.Load() {
		return nil
	}
	_, err, _ := e.imageGroup.Do("pull", func() (any, error) {
		req := testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image: e.cfg.Image,
			},
			Started: false,
		}
		ctr, err := testcontainers.GenericContainer(ctx, req)
		if err != nil {
			return nil, err
		}
		e.imageCached.Store(true)
		return nil, ctr.Terminate(context.Background())
	})
	if err != nil {
		return domain.NewError(domain.KindContainer, fmt.Sprintf("sandbox: pull image %s: %v", e.cfg.Image, err))
	}
	return nil
}
