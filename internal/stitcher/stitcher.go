// Package stitcher implements the deterministic Video Stitcher: it loads
// synthesized scene clips, applies the transition kind the Scene Cohesor
// derived for each adjacent pair, and encodes one final advertisement video.
//
// There is no Go-native video-editing library anywhere in the reference
// corpus, so composition is driven by shelling out to ffmpeg the same way
// the teacher's exec tool shells out to arbitrary commands: bounded
// timeout, sandboxed arguments, span/metric instrumentation (see
// runner.go). DESIGN.md records why this is stdlib/os-exec rather than a
// third-party dependency.
package stitcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"adreel/internal/apperr"
	"adreel/internal/config"
	"adreel/internal/domain"
	"adreel/internal/objectstore"
	"adreel/internal/sandbox"
)

// Stitcher composes successfully synthesized scene clips into one output
// video, per §4.6's five-step algorithm. A Stitcher is safe for concurrent
// use across generations: each Stitch call opens its own session, with its
// own runners scoped to its own temporary work directory.
type Stitcher struct {
	store         objectstore.ObjectStore
	ffmpegBinary  string
	ffprobeBinary string
	timeout       time.Duration
	cfg           config.VideoStitcherConfig
}

// New builds a Stitcher backed by the given object store.
func New(store objectstore.ObjectStore, cfg config.VideoStitcherConfig) *Stitcher {
	return &Stitcher{
		store:         store,
		ffmpegBinary:  orDefault(cfg.FFmpegBinary, "ffmpeg"),
		ffprobeBinary: orDefault(cfg.FFprobeBinary, "ffprobe"),
		timeout:       time.Duration(cfg.CommandTimeoutSeconds) * time.Second,
		cfg:           cfg,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// clip pairs a successfully synthesized scene's original scene number with
// its object-store key, preserving stitch order.
type clip struct {
	SceneNumber int
	Key         string
}

// session holds the resources scoped to a single Stitch call: its own
// ffmpeg/ffprobe runners bound to its own work directory, so concurrent
// Stitch calls never share mutable runner state.
type session struct {
	store   objectstore.ObjectStore
	cfg     config.VideoStitcherConfig
	ffmpeg  *runner
	ffprobe *runner
}

// Stitch assembles the surviving scenes into one final video at outputKey.
// pairwise is the Cohesor's full, original-scene-number-indexed transition
// report; §4.6 Testable Property #2 requires looking up each surviving
// adjacent pair's transition there directly rather than recomputing or
// averaging scores when scenes were dropped in Phase 4.
func (s *Stitcher) Stitch(ctx context.Context, generationID string, videos []domain.SceneVideo, pairwise []domain.PairwiseTransition, outputKey string) (string, error) {
	clips := survivingClips(videos)
	if len(clips) == 0 {
		return "", apperr.New(apperr.InvalidInput, "stitcher", fmt.Errorf("no surviving scene clips to stitch"))
	}

	workDir, err := os.MkdirTemp(sandbox.ResolveBaseDir(ctx, ""), fmt.Sprintf("stitch-%s-*", generationID))
	if err != nil {
		return "", apperr.New(apperr.InternalIO, "stitcher", err)
	}
	defer os.RemoveAll(workDir)

	sess := &session{
		store:   s.store,
		cfg:     s.cfg,
		ffmpeg:  newRunner(s.ffmpegBinary, workDir, s.timeout),
		ffprobe: newRunner(s.ffprobeBinary, workDir, s.timeout),
	}

	local, release, err := sess.downloadClips(ctx, workDir, clips)
	defer release()
	if err != nil {
		return "", err
	}

	if len(local) == 1 {
		return sess.finishSingleClip(ctx, local[0], outputKey)
	}

	infos := make([]clipInfo, len(local))
	for i, path := range local {
		info, err := sess.ffprobe.probe(ctx, path)
		if err != nil {
			return "", err
		}
		infos[i] = info
	}

	normalized, release2, err := sess.normalizeAll(ctx, workDir, local, infos[0])
	defer release2()
	if err != nil {
		return "", err
	}

	current := normalized[0]
	current, releaseIntro, err := sess.applyIntroFade(ctx, workDir, current)
	if err != nil {
		return "", err
	}
	defer releaseIntro()

	for i := 1; i < len(normalized); i++ {
		kind := transitionFor(pairwise, clips[i-1].SceneNumber, clips[i].SceneNumber)
		joined, releaseJoin, err := sess.join(ctx, workDir, current, normalized[i], kind)
		if err != nil {
			releaseJoin()
			return "", err
		}
		current = joined
		defer releaseJoin()
	}

	final, releaseOutro, err := sess.applyOutroFade(ctx, workDir, current)
	if err != nil {
		return "", err
	}
	defer releaseOutro()

	return sess.upload(ctx, final, outputKey)
}

func survivingClips(videos []domain.SceneVideo) []clip {
	out := make([]clip, 0, len(videos))
	for _, v := range videos {
		if v.FilePath != "" {
			out = append(out, clip{SceneNumber: v.SceneNumber, Key: v.FilePath})
		}
	}
	return out
}

// transitionFor looks up the pairwise score to use between two original
// scene numbers that are now adjacent after Phase 4 dropped any scenes
// between them. The Cohesor's report only ever holds consecutive pairs
// (i, i+1), so once scenes are dropped the surviving join (e.g. 2->4 after
// scene 3 fails) has no exact (from,to) entry. Per §9 open question 2 and
// Scenario B, the stitcher does not average or invent a score for the gap:
// it uses the original pairwise entry that ends at the surviving "to"
// scene (pair (3,4) for a 2->4 join), which is the report's own verdict on
// the transition into that scene.
func transitionFor(pairwise []domain.PairwiseTransition, from, to int) domain.TransitionKind {
	for _, p := range pairwise {
		if p.ToScene == to {
			return domain.DeriveTransitionKind(p.TransitionScore)
		}
	}
	return domain.TransitionCut
}

// downloadClips pulls each clip to a local file and returns a single
// release func that closes every acquired resource, success or failure.
func (sess *session) downloadClips(ctx context.Context, workDir string, clips []clip) ([]string, func(), error) {
	var opened []io.Closer
	release := func() {
		for _, c := range opened {
			c.Close()
		}
	}

	paths := make([]string, 0, len(clips))
	for i, c := range clips {
		r, _, err := sess.store.Get(ctx, c.Key)
		if err != nil {
			return nil, release, apperr.New(apperr.InternalIO, "stitcher", fmt.Errorf("fetch clip %s: %w", c.Key, err))
		}
		opened = append(opened, r)

		path := filepath.Join(workDir, fmt.Sprintf("input_%03d.mp4", i))
		f, err := os.Create(path)
		if err != nil {
			return nil, release, apperr.New(apperr.InternalIO, "stitcher", err)
		}
		_, copyErr := io.Copy(f, r)
		f.Close()
		if copyErr != nil {
			return nil, release, apperr.New(apperr.InternalIO, "stitcher", fmt.Errorf("write clip %s: %w", c.Key, copyErr))
		}
		paths = append(paths, path)
	}
	return paths, release, nil
}

// normalizeAll rescales every clip to the first clip's resolution and the
// configured target frame rate (§4.6 step 1).
func (sess *session) normalizeAll(ctx context.Context, workDir string, paths []string, target clipInfo) ([]string, func(), error) {
	fps := sess.cfg.TargetFrameRate
	if fps <= 0 {
		fps = 24
	}
	var cleanup []string
	release := func() { removeAll(cleanup) }

	out := make([]string, len(paths))
	for i, p := range paths {
		dst := filepath.Join(workDir, fmt.Sprintf("norm_%03d.mp4", i))
		vf := fmt.Sprintf("scale=%d:%d,fps=%d", target.Width, target.Height, fps)
		if _, err := sess.ffmpeg.run(ctx, "-y", "-i", p, "-vf", vf, "-c:a", "copy", dst); err != nil {
			return nil, release, err
		}
		cleanup = append(cleanup, dst)
		out[i] = dst
	}
	return out, release, nil
}

func (sess *session) applyIntroFade(ctx context.Context, workDir, path string) (string, func(), error) {
	d := sess.cfg.IntroFadeSeconds
	if d <= 0 {
		d = 0.3
	}
	dst := filepath.Join(workDir, "intro.mp4")
	vf := fmt.Sprintf("fade=t=in:st=0:d=%.2f", d)
	if _, err := sess.ffmpeg.run(ctx, "-y", "-i", path, "-vf", vf, "-c:a", "copy", dst); err != nil {
		return "", func() {}, err
	}
	return dst, func() { os.Remove(dst) }, nil
}

func (sess *session) applyOutroFade(ctx context.Context, workDir, path string) (string, func(), error) {
	d := sess.cfg.OutroFadeSeconds
	if d <= 0 {
		d = 0.3
	}
	info, err := sess.ffprobe.probe(ctx, path)
	if err != nil {
		return "", func() {}, err
	}
	start := info.Duration - d
	if start < 0 {
		start = 0
	}
	dst := filepath.Join(workDir, "outro.mp4")
	vf := fmt.Sprintf("fade=t=out:st=%.2f:d=%.2f", start, d)
	bitrate := sess.cfg.VideoBitrateKbps
	if bitrate <= 0 {
		bitrate = 5000
	}
	if _, err := sess.ffmpeg.run(ctx, "-y", "-i", path, "-vf", vf, "-b:v", fmt.Sprintf("%dk", bitrate), "-c:a", "aac", dst); err != nil {
		return "", func() {}, err
	}
	return dst, func() { os.Remove(dst) }, nil
}

// join composes the running accumulator clip with the next clip using the
// transition kind §4.6 step 3 maps it to.
func (sess *session) join(ctx context.Context, workDir, a, b string, kind domain.TransitionKind) (string, func(), error) {
	dst := filepath.Join(workDir, fmt.Sprintf("join_%d.mp4", time.Now().UnixNano()%1_000_000))
	release := func() { os.Remove(dst) }

	switch kind {
	case domain.TransitionCrossfade:
		aInfo, err := sess.ffprobe.probe(ctx, a)
		if err != nil {
			return "", release, err
		}
		d := kind.Duration().Seconds()
		offset := aInfo.Duration - d
		if offset < 0 {
			offset = 0
		}
		filter := fmt.Sprintf(
			"[0:v][1:v]xfade=transition=fade:duration=%.2f:offset=%.2f[v];[0:a][1:a]acrossfade=d=%.2f[a]",
			d, offset, d,
		)
		if _, err := sess.ffmpeg.run(ctx, "-y", "-i", a, "-i", b, "-filter_complex", filter, "-map", "[v]", "-map", "[a]", dst); err != nil {
			return "", release, err
		}

	case domain.TransitionFade:
		aInfo, err := sess.ffprobe.probe(ctx, a)
		if err != nil {
			return "", release, err
		}
		half := kind.Duration().Seconds() / 2
		fadeStart := aInfo.Duration - half
		if fadeStart < 0 {
			fadeStart = 0
		}
		filter := fmt.Sprintf(
			"[0:v]fade=t=out:st=%.2f:d=%.2f[v0];[1:v]fade=t=in:st=0:d=%.2f[v1];[v0][0:a][v1][1:a]concat=n=2:v=1:a=1[v][a]",
			fadeStart, half, half,
		)
		if _, err := sess.ffmpeg.run(ctx, "-y", "-i", a, "-i", b, "-filter_complex", filter, "-map", "[v]", "-map", "[a]", dst); err != nil {
			return "", release, err
		}

	default: // cut
		filter := "[0:v][0:a][1:v][1:a]concat=n=2:v=1:a=1[v][a]"
		if _, err := sess.ffmpeg.run(ctx, "-y", "-i", a, "-i", b, "-filter_complex", filter, "-map", "[v]", "-map", "[a]", dst); err != nil {
			return "", release, err
		}
	}
	return dst, release, nil
}

func (sess *session) finishSingleClip(ctx context.Context, path, outputKey string) (string, error) {
	intro, releaseIntro, err := sess.applyIntroFade(ctx, filepath.Dir(path), path)
	if err != nil {
		return "", err
	}
	defer releaseIntro()
	outro, releaseOutro, err := sess.applyOutroFade(ctx, filepath.Dir(path), intro)
	if err != nil {
		return "", err
	}
	defer releaseOutro()
	return sess.upload(ctx, outro, outputKey)
}

func (sess *session) upload(ctx context.Context, path, outputKey string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperr.New(apperr.InternalIO, "stitcher", err)
	}
	defer f.Close()
	if _, err := sess.store.Put(ctx, outputKey, f, objectstore.PutOptions{ContentType: "video/mp4"}); err != nil {
		return "", apperr.New(apperr.InternalIO, "stitcher", fmt.Errorf("upload final video: %w", err))
	}
	return outputKey, nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
