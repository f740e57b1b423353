package stitcher

import (
	"context"
	"encoding/json"
	"fmt"

	"adreel/internal/apperr"
)

type probeStream struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"codec_type"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// clipInfo holds the dimensions and duration of one local clip file, probed
// once per clip so transition and normalization math never re-shells out.
type clipInfo struct {
	Width    int
	Height   int
	Duration float64
}

func (p *runner) probe(ctx context.Context, path string) (clipInfo, error) {
	out, err := p.run(ctx, "-v", "error", "-print_format", "json", "-show_format", "-show_streams", path)
	if err != nil {
		return clipInfo{}, err
	}
	var parsed probeOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return clipInfo{}, apperr.New(apperr.InternalIO, "stitcher", fmt.Errorf("parse probe output: %w", err))
	}
	info := clipInfo{}
	if _, err := fmt.Sscanf(parsed.Format.Duration, "%f", &info.Duration); err != nil {
		return clipInfo{}, apperr.New(apperr.InternalIO, "stitcher", fmt.Errorf("parse clip duration %q: %w", parsed.Format.Duration, err))
	}
	for _, s := range parsed.Streams {
		if s.Type == "video" {
			info.Width, info.Height = s.Width, s.Height
			break
		}
	}
	if info.Width == 0 || info.Height == 0 {
		return clipInfo{}, apperr.New(apperr.InternalIO, "stitcher", fmt.Errorf("clip %s has no video stream", path))
	}
	return info, nil
}
