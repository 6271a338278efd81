package gstnode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"golang.org/x/sync/errgroup"

	streamsupervisor "github.com/e7canasta/orion-care-sensor/modules/stream-supervisor"
)

// PipelineConfig configures the shared pipeline
type PipelineConfig struct {
	// Aggregator is the factory of the element every source feeds (default "compositor")
	Aggregator string
	// Sink is the factory of the element after the aggregator (default "fakesink")
	Sink string
	// StallAfter tunes stalled-transition detection (default 500ms)
	StallAfter time.Duration
	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// Pipeline owns one GStreamer pipeline with N RTSP sources feeding one
// aggregator element, supervised by a streamsupervisor.Supervisor.
//
// It implements streamsupervisor.Aggregator on the aggregator's src pad.
type Pipeline struct {
	cfg PipelineConfig
	log *slog.Logger
	sup *streamsupervisor.Supervisor

	pipeline   *gst.Pipeline
	aggregator *gst.Element
	sink       *gst.Element

	nodes      []*Node
	stateOwner map[string]*Node
	errorOwner map[string]*Node

	mu      sync.Mutex
	probeID uint64
	probing bool
	fatal   error
}

// NewPipeline creates the pipeline and its supervisor. Sources are added with AddSource.
func NewPipeline(cfg PipelineConfig, supCfg streamsupervisor.Config) (*Pipeline, error) {
	if cfg.Aggregator == "" {
		cfg.Aggregator = "compositor"
	}
	if cfg.Sink == "" {
		cfg.Sink = "fakesink"
	}
	if cfg.StallAfter == 0 {
		cfg.StallAfter = DefaultStallAfter
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if supCfg.Logger == nil {
		supCfg.Logger = cfg.Logger
	}

	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gstnode: failed to create pipeline: %w", err)
	}
	aggregator, err := gst.NewElementWithName(cfg.Aggregator, "aggregator")
	if err != nil {
		return nil, fmt.Errorf("gstnode: failed to create %s: %w", cfg.Aggregator, err)
	}
	sink, err := gst.NewElementWithName(cfg.Sink, "sink")
	if err != nil {
		return nil, fmt.Errorf("gstnode: failed to create %s: %w", cfg.Sink, err)
	}
	sink.SetProperty("sync", false)

	if err := pipeline.AddMany(aggregator, sink); err != nil {
		return nil, fmt.Errorf("gstnode: failed to add aggregator: %w", err)
	}
	if err := aggregator.Link(sink); err != nil {
		return nil, fmt.Errorf("gstnode: failed to link aggregator to sink: %w", err)
	}

	p := &Pipeline{
		cfg:        cfg,
		log:        cfg.Logger,
		pipeline:   pipeline,
		aggregator: aggregator,
		sink:       sink,
		stateOwner: make(map[string]*Node),
		errorOwner: make(map[string]*Node),
	}

	sup, err := streamsupervisor.New(p, supCfg)
	if err != nil {
		return nil, err
	}
	p.sup = sup

	return p, nil
}

// Supervisor returns the supervisor driving the sources
func (p *Pipeline) Supervisor() *streamsupervisor.Supervisor {
	return p.sup
}

// AddSource builds a source, attaches it to the supervisor and links it to
// the next aggregator sink pad. Only allowed before Run.
func (p *Pipeline) AddSource(cfg streamsupervisor.SourceConfig) (*Node, error) {
	if cfg.ID == "" {
		cfg.ID = fmt.Sprintf("source-%d", len(p.nodes))
	}

	node, err := newNode(cfg, p.sup, p.cfg.StallAfter, p.log)
	if err != nil {
		return nil, err
	}

	index, err := p.sup.Attach(cfg, node)
	if err != nil {
		return nil, err
	}
	node.index = index

	if err := p.pipeline.AddMany(node.elements...); err != nil {
		return nil, fmt.Errorf("gstnode: failed to add %s: %w", cfg.ID, err)
	}
	if err := node.link(); err != nil {
		return nil, err
	}

	sinkPad := p.aggregator.GetRequestPad("sink_%u")
	if sinkPad == nil {
		return nil, fmt.Errorf("gstnode: %s has no free sink pad", p.cfg.Aggregator)
	}
	if ret := node.queue.GetStaticPad("src").Link(sinkPad); ret != gst.PadLinkOK {
		return nil, fmt.Errorf("gstnode: failed to link %s to aggregator: %v", cfg.ID, ret)
	}

	p.nodes = append(p.nodes, node)
	p.stateOwner[node.rtspsrc.GetName()] = node
	for _, e := range node.elements {
		p.errorOwner[e.GetName()] = node
	}

	p.log.Info("gstnode: source added",
		"source_id", cfg.ID,
		"index", index,
		"uri", cfg.URI,
		"rtp_protocol", cfg.RTPProtocol.String(),
	)
	return node, nil
}

// Nodes returns the sources in index order
func (p *Pipeline) Nodes() []*Node {
	return p.nodes
}

// Run sets the pipeline to PLAYING and runs the bus watcher and the
// supervisor until ctx is canceled, the pipeline reaches end-of-stream or
// every source is exhausted. The pipeline is set to NULL on return.
//
// Returns streamsupervisor.ErrAllSourcesFailed on exhaustion, nil otherwise.
func (p *Pipeline) Run(ctx context.Context) error {
	if len(p.nodes) == 0 {
		return fmt.Errorf("gstnode: no sources added")
	}

	if err := p.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("gstnode: failed to start pipeline: %w", err)
	}
	defer func() {
		if err := p.pipeline.SetState(gst.StateNull); err != nil {
			p.log.Error("gstnode: failed to stop pipeline", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.sup.Run(gctx)
	})
	g.Go(func() error {
		return p.watchBus(gctx)
	})

	err := g.Wait()
	if fatal := p.Fatal(); fatal != nil {
		return fatal
	}
	if errors.Is(err, errEndOfStream) {
		return nil
	}
	return err
}

var errEndOfStream = errors.New("gstnode: end of stream")

// watchBus polls the pipeline bus and routes per-source messages to their node.
// Per-source errors are not fatal: the supervisor decides what to do with the source.
func (p *Pipeline) watchBus(ctx context.Context) error {
	bus := p.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("gstnode: context cancelled, stopping bus watcher")
			return nil
		default:
		}

		// Poll with a short timeout for responsive shutdown
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			p.log.Info("gstnode: pipeline reached end of stream")
			return errEndOfStream

		case gst.MessageError:
			gerr := msg.ParseError()
			category := ClassifyError(gerr.Error(), gerr.DebugString())
			node := p.errorOwner[msg.Source()]

			attrs := []any{
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"category", category.String(),
				"element", msg.Source(),
			}
			if node != nil {
				node.noteError(category)
				attrs = append(attrs, "source_id", node.cfg.ID)
			}
			p.log.Error("gstnode: pipeline error", attrs...)

		case gst.MessageStateChanged:
			node := p.stateOwner[msg.Source()]
			if node == nil {
				continue
			}
			old, next := msg.ParseStateChanged()
			node.noteState(next)
			p.log.Debug("gstnode: source state changed",
				"source_id", node.cfg.ID,
				"from", old,
				"to", next,
			)
		}
	}
}

// InstallEOSSuppression implements streamsupervisor.Aggregator
func (p *Pipeline) InstallEOSSuppression(intercept func() bool) error {
	pad := p.aggregator.GetStaticPad("src")
	if pad == nil {
		return fmt.Errorf("gstnode: %s has no src pad", p.cfg.Aggregator)
	}

	id := pad.AddProbe(gst.PadProbeTypeEventDownstream, func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		ev := info.GetEvent()
		if ev == nil || ev.Type() != gst.EventTypeEOS {
			return gst.PadProbeOK
		}
		if intercept() {
			return gst.PadProbeOK
		}
		p.log.Debug("gstnode: end of stream suppressed at aggregator")
		return gst.PadProbeDrop
	})

	p.mu.Lock()
	p.probeID = id
	p.probing = true
	p.mu.Unlock()

	p.log.Info("gstnode: EOS suppression installed", "aggregator", p.cfg.Aggregator)
	return nil
}

// RemoveEOSSuppression implements streamsupervisor.Aggregator
func (p *Pipeline) RemoveEOSSuppression() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.probing {
		return nil
	}
	pad := p.aggregator.GetStaticPad("src")
	if pad == nil {
		return fmt.Errorf("gstnode: %s has no src pad", p.cfg.Aggregator)
	}
	pad.RemoveProbe(p.probeID)
	p.probing = false

	p.log.Info("gstnode: EOS suppression removed")
	return nil
}

// ReportFatal implements streamsupervisor.Aggregator: the pipeline is sent
// end-of-stream so the sink drains and the bus reports it.
func (p *Pipeline) ReportFatal(err error) {
	p.mu.Lock()
	p.fatal = err
	p.mu.Unlock()

	p.log.Error("gstnode: no source left, ending pipeline", "error", err)
	if !p.pipeline.SendEvent(gst.NewEOSEvent()) {
		p.log.Warn("gstnode: pipeline did not accept end of stream")
	}
}

// Fatal returns the error reported when every source was exhausted
func (p *Pipeline) Fatal() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fatal
}
