// Package gstnode runs supervised RTSP sources on GStreamer.
//
// A Pipeline holds one aggregator element (compositor by default) fed by N
// sources. Each source is a Node:
//
//	rtspsrc → rtph264depay → h264parse → avdec_h264 → videoconvert → queue → aggregator.sink_%u
//
// Pad probes on each queue report buffers and end-of-stream to the
// supervisor. A pad probe on the aggregator's src pad implements EOS
// suppression. Transition state after a restart is derived from bus
// StateChanged messages of the source's rtspsrc.
//
// # Quick Start
//
//	p, err := gstnode.NewPipeline(gstnode.PipelineConfig{}, streamsupervisor.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, src := range sources {
//	    if _, err := p.AddSource(src); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	err = p.Run(ctx) // streamsupervisor.ErrAllSourcesFailed when every source is exhausted
//
// GStreamer 1.x with plugins-base, plugins-good and libav must be installed.
package gstnode
