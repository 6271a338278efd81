package gstnode

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	streamsupervisor "github.com/e7canasta/orion-care-sensor/modules/stream-supervisor"
)

// Events is where a node reports buffers and end-of-stream
type Events interface {
	OnBufferArrived(index int, at time.Time) error
	OnTerminalSignal(index int) error
}

// ErrorCounts is the number of bus errors per category seen for one source
type ErrorCounts struct {
	Network uint64
	Codec   uint64
	Auth    uint64
	Unknown uint64
}

// Node is one RTSP source inside the shared pipeline:
//
//	rtspsrc → rtph264depay → h264parse → avdec_h264 → videoconvert → queue → aggregator
//
// It implements streamsupervisor.SourceNode.
type Node struct {
	cfg   streamsupervisor.SourceConfig
	index int
	log   *slog.Logger

	events     Events
	stallAfter time.Duration

	rtspsrc  *gst.Element
	depay    *gst.Element
	queue    *gst.Element
	elements []*gst.Element

	// bus-derived transition state
	mu        sync.Mutex
	state     gst.State
	changedAt time.Time
	failed    bool

	buffers       uint64
	errorsNetwork uint64
	errorsCodec   uint64
	errorsAuth    uint64
	errorsUnknown uint64
}

// newNode creates (but does not add or link) the elements of one source.
// Element names are prefixed with the source id so bus messages can be routed back.
func newNode(cfg streamsupervisor.SourceConfig, events Events, stallAfter time.Duration, logger *slog.Logger) (*Node, error) {
	n := &Node{
		cfg:        cfg,
		index:      -1,
		log:        logger,
		events:     events,
		stallAfter: stallAfter,
		state:      gst.StateNull,
		changedAt:  time.Now(),
	}

	factories := []string{"rtspsrc", "rtph264depay", "h264parse", "avdec_h264", "videoconvert", "queue"}
	for _, factory := range factories {
		e, err := gst.NewElementWithName(factory, n.elementName(factory))
		if err != nil {
			return nil, fmt.Errorf("gstnode: failed to create %s for %s: %w", factory, cfg.ID, err)
		}
		n.elements = append(n.elements, e)
	}
	n.rtspsrc = n.elements[0]
	n.depay = n.elements[1]
	n.queue = n.elements[len(n.elements)-1]

	n.rtspsrc.SetProperty("location", cfg.URI)
	n.rtspsrc.SetProperty("latency", uint(cfg.Latency.Milliseconds()))
	n.rtspsrc.SetProperty("drop-on-latency", true)
	if cfg.RTPProtocol != streamsupervisor.RTPAny {
		n.rtspsrc.SetProperty("protocols", int(cfg.RTPProtocol))
	}
	n.depay.SetProperty("request-keyframe", true)

	// rtspsrc has dynamic pads; they are recreated after every restart
	n.rtspsrc.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		n.onPadAdded(srcPad)
	})

	return n, nil
}

func (n *Node) elementName(factory string) string {
	return n.cfg.ID + "-" + factory
}

// link chains the static elements and attaches the data-path probes
func (n *Node) link() error {
	if err := gst.ElementLinkMany(n.elements[1:]...); err != nil {
		return fmt.Errorf("gstnode: failed to link %s: %w", n.cfg.ID, err)
	}

	out := n.queue.GetStaticPad("src")
	if out == nil {
		return fmt.Errorf("gstnode: %s queue has no src pad", n.cfg.ID)
	}

	out.AddProbe(gst.PadProbeTypeBuffer, func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		atomic.AddUint64(&n.buffers, 1)
		_ = n.events.OnBufferArrived(n.index, time.Now())
		return gst.PadProbeOK
	})

	out.AddProbe(gst.PadProbeTypeEventDownstream, func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		ev := info.GetEvent()
		if ev != nil && ev.Type() == gst.EventTypeEOS {
			n.log.Info("gstnode: end of stream from source", "source_id", n.cfg.ID, "index", n.index)
			_ = n.events.OnTerminalSignal(n.index)
		}
		return gst.PadProbeOK
	})

	return nil
}

func (n *Node) onPadAdded(srcPad *gst.Pad) {
	n.log.Debug("gstnode: pad-added signal received", "source_id", n.cfg.ID, "pad", srcPad.GetName())

	sinkPad := n.depay.GetStaticPad("sink")
	if sinkPad == nil {
		n.log.Error("gstnode: failed to get sink pad from rtph264depay", "source_id", n.cfg.ID)
		return
	}
	if sinkPad.IsLinked() {
		return
	}

	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		n.log.Error("gstnode: failed to link rtspsrc pad",
			"source_id", n.cfg.ID,
			"src_pad", srcPad.GetName(),
			"ret", ret,
		)
	}
}

// RequestStop sets every element of the source to NULL
func (n *Node) RequestStop() error {
	for _, e := range n.elements {
		if err := e.SetState(gst.StateNull); err != nil {
			return fmt.Errorf("gstnode: %s failed to reach NULL: %w", e.GetName(), err)
		}
	}

	n.mu.Lock()
	n.state = gst.StateNull
	n.changedAt = time.Now()
	n.mu.Unlock()
	return nil
}

// RequestResync brings the source back to the pipeline's state. rtspsrc is
// live, so the change completes asynchronously and is tracked from the bus.
func (n *Node) RequestResync() error {
	n.mu.Lock()
	n.failed = false
	n.changedAt = time.Now()
	n.mu.Unlock()

	// Downstream first so the source never pushes into a NULL element
	for i := len(n.elements) - 1; i >= 0; i-- {
		if !n.elements[i].SyncStateWithParent() {
			return fmt.Errorf("gstnode: couldn't sync %s with parent", n.elements[i].GetName())
		}
	}
	return nil
}

// QueryTransition reports the bus-derived transition state
func (n *Node) QueryTransition() streamsupervisor.TransitionState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return transitionState(n.failed, n.state, time.Since(n.changedAt), n.stallAfter)
}

// RequestRunning asks every element for PLAYING again
func (n *Node) RequestRunning() error {
	n.mu.Lock()
	n.changedAt = time.Now()
	n.mu.Unlock()

	for _, e := range n.elements {
		if err := e.SetState(gst.StatePlaying); err != nil {
			return fmt.Errorf("gstnode: %s failed to go to PLAYING: %w", e.GetName(), err)
		}
	}
	return nil
}

// Terminate pushes end-of-stream into the aggregator pad and sets the source to NULL
func (n *Node) Terminate() error {
	if out := n.queue.GetStaticPad("src"); out != nil {
		if !out.PushEvent(gst.NewEOSEvent()) {
			n.log.Debug("gstnode: end of stream not accepted downstream", "source_id", n.cfg.ID)
		}
	}
	for _, e := range n.elements {
		if err := e.SetState(gst.StateNull); err != nil {
			return fmt.Errorf("gstnode: %s failed to reach NULL: %w", e.GetName(), err)
		}
	}
	return nil
}

// State changes of rtspsrc stand for the whole source
func (n *Node) noteState(next gst.State) {
	n.mu.Lock()
	n.state = next
	n.changedAt = time.Now()
	n.mu.Unlock()
}

// noteError counts a bus error and fails a transition in progress
func (n *Node) noteError(category ErrorCategory) {
	switch category {
	case ErrCategoryNetwork:
		atomic.AddUint64(&n.errorsNetwork, 1)
	case ErrCategoryCodec:
		atomic.AddUint64(&n.errorsCodec, 1)
	case ErrCategoryAuth:
		atomic.AddUint64(&n.errorsAuth, 1)
	default:
		atomic.AddUint64(&n.errorsUnknown, 1)
	}

	n.mu.Lock()
	if n.state != gst.StatePlaying {
		n.failed = true
	}
	n.mu.Unlock()
}

// Index returns the aggregator port index of the source (-1 before it is added)
func (n *Node) Index() int { return n.index }

// Buffers returns how many buffers reached the aggregator from this source
func (n *Node) Buffers() uint64 { return atomic.LoadUint64(&n.buffers) }

// Errors returns the bus error counts for this source
func (n *Node) Errors() ErrorCounts {
	return ErrorCounts{
		Network: atomic.LoadUint64(&n.errorsNetwork),
		Codec:   atomic.LoadUint64(&n.errorsCodec),
		Auth:    atomic.LoadUint64(&n.errorsAuth),
		Unknown: atomic.LoadUint64(&n.errorsUnknown),
	}
}
