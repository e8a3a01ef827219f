package pipelinerun

import (
	"reelmill/internal/acquisition"
	"reelmill/internal/catalog"
	"reelmill/internal/publication"
	"reelmill/internal/segmentation"
	"reelmill/internal/services"
)

// Stages bundles the concrete stage implementations for one session.
type Stages struct {
	Acquisition  *acquisition.Stage
	Segmentation *segmentation.Stage
	Publication  *publication.Stage
}

// BuildStages wires aria2c, ffprobe/ffmpeg and the Graph API client from the
// session configuration. Publication records every upload in the ledger.
func (s *Session) BuildStages() (Stages, error) {
	cfg := s.Config

	downloader, err := acquisition.NewClient(cfg.Acquisition.Aria2cBinary, cfg.Acquisition.TimeoutSeconds)
	if err != nil {
		return Stages{}, services.Wrap(services.ErrConfiguration, "acquisition", "init", "aria2c client", err)
	}
	renderer, err := segmentation.NewRenderer(cfg.Segmentation)
	if err != nil {
		return Stages{}, services.Wrap(services.ErrConfiguration, "segmentation", "init", "ffmpeg renderer", err)
	}
	prober := segmentation.FFprobe{Binary: cfg.Segmentation.FFprobeBinary}
	plan := segmentation.Options{
		ClipSeconds:        cfg.Segmentation.ClipSeconds,
		LeadMarginSeconds:  cfg.Segmentation.LeadMarginSeconds,
		TrailMarginSeconds: cfg.Segmentation.TrailMarginSeconds,
	}
	graph := publication.NewClient(cfg.Publication)

	return Stages{
		Acquisition:  acquisition.NewStage(cfg.Paths.MoviesDir, catalog.New(cfg.Catalog.Path), downloader, s.Notifier, s.Logger),
		Segmentation: segmentation.NewStage(cfg.Paths.ClipsDir, plan, prober, renderer, s.Notifier, s.Logger),
		Publication:  publication.NewStage(cfg.Publication, graph, s.Logger, publication.WithHistory(s.Ledger)),
	}, nil
}
