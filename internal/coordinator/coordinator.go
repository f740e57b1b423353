// Package coordinator implements the Generation Coordinator: the single
// entry point that validates a submission, reserves a generation, and
// drives it through the Agent Orchestrator in the background, per §4.1.
package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"adreel/internal/apperr"
	"adreel/internal/config"
	"adreel/internal/convrecorder"
	"adreel/internal/domain"
	"adreel/internal/objectstore"
	"adreel/internal/orchestrator"
	"adreel/internal/persistence"
	"adreel/internal/progressbus"
	"adreel/internal/sandbox"
	"adreel/internal/validation"
)

// ReferenceImageInput is one caller-supplied reference image, prior to
// scratch-area placement.
type ReferenceImageInput struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Submission is the validated input to Submit, mirroring §6.1's submission
// record.
type Submission struct {
	UserID                string
	Prompt                string
	Title                 string
	BrandName             string
	ReferenceImages       []ReferenceImageInput
	ClientGenerationID    string
	MaxStoryIterations    int
	GenerateScenes        bool
	GenerateVideos        bool
	TargetDurationSeconds int
}

// Coordinator wires the Progress Bus registry, persistence, object
// storage, and the Orchestrator into one submission entry point.
type Coordinator struct {
	buses        *progressbus.Registry
	store        persistence.GenerationStore
	objStore     objectstore.ObjectStore
	orch         *orchestrator.Orchestrator
	cfg          config.PipelineConfig
	perImageCap  int64
	scratchBase  string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New builds a Coordinator.
func New(buses *progressbus.Registry, store persistence.GenerationStore, objStore objectstore.ObjectStore, orch *orchestrator.Orchestrator, cfg config.PipelineConfig) *Coordinator {
	capBytes := cfg.PerImageSizeCapBytes
	if capBytes <= 0 {
		capBytes = 10 * 1024 * 1024
	}
	return &Coordinator{
		buses:       buses,
		store:       store,
		objStore:    objStore,
		orch:        orch,
		cfg:         cfg,
		perImageCap: capBytes,
		scratchBase: cfg.ScratchBasePath,
		cancels:     map[string]context.CancelFunc{},
	}
}

// Submit validates the submission, reserves a generation ID, creates the
// Progress Bus queue and the persistent record, copies reference images
// into the scratch area, and launches the Orchestrator in the background.
// It returns as soon as the record and queue exist, per §4.1.
func (c *Coordinator) Submit(ctx context.Context, sub Submission) (string, error) {
	if err := c.validate(sub); err != nil {
		return "", err
	}

	generationID := sub.ClientGenerationID
	if generationID == "" {
		generationID = uuid.NewString()
	}

	bus := c.buses.GetOrCreate(generationID)

	targetDuration := sub.TargetDurationSeconds
	if targetDuration == 0 {
		targetDuration = 30
	}
	maxStoryIterations := sub.MaxStoryIterations
	if maxStoryIterations == 0 {
		maxStoryIterations = c.cfg.MaxStoryIterations
	}
	generateScenes := sub.GenerateScenes
	generateVideos := sub.GenerateVideos

	gen := domain.Generation{
		ID:                 generationID,
		UserID:             sub.UserID,
		Prompt:             sub.Prompt,
		Title:              sub.Title,
		BrandName:          sub.BrandName,
		MaxStoryIterations: maxStoryIterations,
		GenerateScenes:     generateScenes,
		GenerateVideos:     generateVideos,
		TargetDurationSecs: targetDuration,
		Status:             domain.StatusProcessing,
		CreatedAt:          time.Now(),
	}
	if err := c.store.Create(ctx, gen); err != nil {
		return "", apperr.New(apperr.InternalIO, "coordinator", fmt.Errorf("create generation record: %w", err))
	}

	publishEvent(bus, domain.StepInit, domain.EventInProgress, 0, "generation accepted")
	publishEvent(bus, domain.StepUpload, domain.EventInProgress, 5, "staging reference images")

	references, err := c.stageReferenceImages(ctx, sub.UserID, generationID, sub.ReferenceImages)
	if err != nil {
		_ = c.store.Fail(ctx, generationID, err.Error())
		return "", err
	}
	publishEvent(bus, domain.StepUpload, domain.EventCompleted, 10, "reference images staged")

	recorder := convrecorder.New(generationID)
	runCtx, cancel := context.WithCancel(context.Background())
	runCtx = sandbox.WithGenerationID(sandbox.WithUserID(runCtx, sub.UserID), generationID)
	c.setCancel(generationID, cancel)

	in := orchestrator.Input{
		GenerationID:          generationID,
		Prompt:                sub.Prompt,
		Title:                 sub.Title,
		BrandName:             sub.BrandName,
		References:            references,
		MaxStoryIterations:    maxStoryIterations,
		GenerateScenes:        generateScenes,
		GenerateVideos:        generateVideos,
		TargetDurationSeconds: targetDuration,
		ScenePathPrefix:       c.scenePathPrefix(sub.UserID, generationID),
		FinalVideoKey:         c.finalVideoKey(sub.UserID, generationID),
	}

	go c.run(runCtx, generationID, in, recorder, bus)

	return generationID, nil
}

// Cancel requests cancellation of an in-flight generation. Returns false
// if the generation is unknown or already terminal.
func (c *Coordinator) Cancel(generationID string) bool {
	c.mu.Lock()
	cancel, ok := c.cancels[generationID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

func (c *Coordinator) setCancel(generationID string, cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels[generationID] = cancel
}

func (c *Coordinator) clearCancel(generationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cancels, generationID)
}

// run drives the Orchestrator for one generation in the background and
// transitions the persistent record to its terminal status, per §4.1
// steps 6-7.
func (c *Coordinator) run(ctx context.Context, generationID string, in orchestrator.Input, recorder *convrecorder.Recorder, bus *progressbus.Bus) {
	defer c.clearCancel(generationID)
	defer bus.Close()

	out, err := c.orch.Run(ctx, in, recorder, bus)
	flushCtx := context.Background()

	if err != nil {
		msg := terminalErrorMessage(ctx, err)
		publishEvent(bus, stepFromStage(apperr.StageOf(err)), domain.EventFailed, 100, msg)
		_ = c.store.Fail(flushCtx, generationID, msg)
		_ = recorder.Flush(flushCtx, c.store)
		return
	}

	result := domain.Generation{
		FinalVideoPath:    out.FinalVideoPath,
		SceneVideoPaths:   out.SceneVideoPaths,
		NumScenes:         out.NumScenes,
		StoryScore:        out.StoryScore,
		CohesionScore:     out.CohesionScore,
		GenerationSeconds: out.GenerationSeconds,
		CompletedAt:       time.Now(),
	}
	if err := c.store.Complete(flushCtx, generationID, result); err != nil {
		_ = c.store.Fail(flushCtx, generationID, fmt.Sprintf("persist completion: %v", err))
	}
	_ = recorder.Flush(flushCtx, c.store)
}

// stepFromStage maps an apperr.Error's Stage tag back to the Step a client
// was last told about, so a terminal failure event names the phase that
// actually failed instead of always reporting "complete".
func stepFromStage(stage string) domain.Step {
	switch stage {
	case "story":
		return domain.StepStory
	case "scenes":
		return domain.StepScenes
	case "scenes_align", "sanitize":
		return domain.StepVideoParams
	case "videosynth", "stitcher":
		return domain.StepVideos
	default:
		return domain.StepComplete
	}
}

func terminalErrorMessage(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.Canceled) || apperr.Is(err, apperr.Cancelled) {
		return "cancelled"
	}
	return err.Error()
}

func publishEvent(bus *progressbus.Bus, step domain.Step, status domain.EventStatus, progress int, message string) {
	if bus == nil {
		return
	}
	bus.Publish(domain.ProgressEvent{
		Step:      step,
		Status:    status,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func (c *Coordinator) scratchDir(userID, generationID string) string {
	return fmt.Sprintf("%s/%s/%s", c.scratchBase, userID, generationID)
}

func (c *Coordinator) scenePathPrefix(userID, generationID string) string {
	return c.scratchDir(userID, generationID) + "/scene_videos"
}

func (c *Coordinator) finalVideoKey(userID, generationID string) string {
	return fmt.Sprintf("%s/final_video_%d.mp4", c.scratchDir(userID, generationID), time.Now().Unix())
}

// stageReferenceImages copies every reference image into the per-generation
// scratch area under deterministic filenames, per §4.1 step 4 and §6.4.
func (c *Coordinator) stageReferenceImages(ctx context.Context, userID, generationID string, images []ReferenceImageInput) ([]domain.ReferenceImage, error) {
	out := make([]domain.ReferenceImage, len(images))
	for i, img := range images {
		index := i + 1
		key := fmt.Sprintf("%s/reference_%d_%s", c.scratchDir(userID, generationID), index, img.Name)
		if _, err := c.objStore.Put(ctx, key, bytes.NewReader(img.Data), objectstore.PutOptions{ContentType: img.MIMEType}); err != nil {
			return nil, apperr.New(apperr.InternalIO, "coordinator", fmt.Errorf("stage reference image %d: %w", index, err))
		}
		out[i] = domain.ReferenceImage{
			Index:       index,
			Name:        img.Name,
			MIMEType:    img.MIMEType,
			Data:        img.Data,
			ScratchPath: key,
		}
	}
	return out, nil
}

// validate enforces §6.1's submission bounds, failing fast with
// InvalidInput before any Generation record is created.
func (c *Coordinator) validate(sub Submission) error {
	if err := validation.Prompt(sub.Prompt); err != nil {
		return apperr.New(apperr.InvalidInput, "coordinator", err)
	}
	if _, err := validation.UserID(sub.UserID); err != nil {
		return apperr.New(apperr.InvalidInput, "coordinator", err)
	}
	if _, err := validation.GenerationID(sub.ClientGenerationID); err != nil {
		return apperr.New(apperr.InvalidInput, "coordinator", err)
	}
	if err := validation.Title(sub.Title); err != nil {
		return apperr.New(apperr.InvalidInput, "coordinator", err)
	}
	if err := validation.BrandName(sub.BrandName); err != nil {
		return apperr.New(apperr.InvalidInput, "coordinator", err)
	}
	if len(sub.ReferenceImages) > validation.MaxReferenceImages {
		return apperr.New(apperr.InvalidInput, "coordinator", validation.ErrTooManyImages)
	}
	for _, img := range sub.ReferenceImages {
		if err := validation.ReferenceImage(int64(len(img.Data)), img.MIMEType, c.perImageCap); err != nil {
			return apperr.New(apperr.InvalidInput, "coordinator", err)
		}
	}
	return nil
}
