package stitcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"adreel/internal/apperr"
	"adreel/internal/observability"
	"adreel/internal/sandbox"
)

// runner shells out to ffmpeg/ffprobe with the same discipline the
// reference corpus applies to every subprocess invocation: a bounded
// timeout, sandboxed path arguments, and span/metric instrumentation.
type runner struct {
	binary  string
	workdir string
	timeout time.Duration
}

func newRunner(binary, workdir string, timeout time.Duration) *runner {
	return &runner{binary: binary, workdir: workdir, timeout: timeout}
}

func (r *runner) run(ctx context.Context, args ...string) (string, error) {
	tracer := otel.Tracer("stitcher")
	meter := otel.Meter("stitcher")
	ctx, span := tracer.Start(ctx, "ffmpeg_exec")
	defer span.End()

	safeArgs := make([]string, 0, len(args))
	for _, a := range args {
		s, err := sandbox.SanitizeArg(r.workdir, a)
		if err != nil {
			// Filter arguments (codec names, filter graphs) are not paths;
			// SanitizeArg passes those through unchanged and only rejects
			// genuine traversal attempts on path-shaped arguments.
			return "", apperr.New(apperr.InvalidInput, "stitcher", fmt.Errorf("unsafe argument %q: %w", a, err))
		}
		safeArgs = append(safeArgs, s)
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.binary, safeArgs...)
	cmd.Dir = r.workdir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	counter, _ := meter.Int64Counter("stitcher.commands.total")
	durHist, _ := meter.Int64Histogram("stitcher.command.duration.ms")
	log := observability.LoggerWithTrace(ctx)

	start := time.Now()
	err := cmd.Run()
	dur := time.Since(start)
	counter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("binary", r.binary)))
	durHist.Record(ctx, dur.Milliseconds(), otelmetric.WithAttributes(attribute.String("binary", r.binary)))
	span.SetAttributes(attribute.String("stitcher.binary", r.binary), attribute.Int64("stitcher.duration_ms", dur.Milliseconds()))

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			log.Warn().Str("binary", r.binary).Dur("duration", dur).Msg("stitcher_command_timeout")
			return "", apperr.New(apperr.AgentTimeout, "stitcher", fmt.Errorf("%s timed out after %s", r.binary, timeout))
		}
		log.Warn().Err(err).Str("binary", r.binary).Str("stderr", stderr.String()).Msg("stitcher_command_failed")
		return "", apperr.New(apperr.InternalIO, "stitcher", fmt.Errorf("%s: %w: %s", r.binary, err, stderr.String()))
	}
	return stdout.String(), nil
}
