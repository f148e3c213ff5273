package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"meetnote/internal/domain"
	"meetnote/internal/ports"
)

// Feed polls the engine for transcription text: the live endpoint while a
// recording is in progress, the complete endpoint otherwise. Each mode switch
// starts a new generation and cancels the previous subscription; a poll
// response tagged with an older generation is discarded instead of applied,
// so a stale live response can never land after the switch to complete.
type Feed struct {
	engine   ports.Engine
	events   ports.EventSink
	interval time.Duration
	log      zerolog.Logger

	mu             sync.Mutex
	gen            uint64
	mode           domain.FeedMode
	conversationID int64
	segments       []string
	cancel         context.CancelFunc
}

func NewFeed(engine ports.Engine, events ports.EventSink, interval time.Duration, log zerolog.Logger) *Feed {
	if interval <= 0 {
		interval = time.Second
	}
	return &Feed{
		engine:   engine,
		events:   events,
		interval: interval,
		log:      log.With().Str("component", "feed").Logger(),
	}
}

// SetLive switches to polling the live-transcription endpoint for the active
// recording.
func (f *Feed) SetLive(conversationID int64) {
	f.switchTo(domain.FeedLive, conversationID)
}

// SetComplete switches to polling the complete-transcription endpoint for a
// stopped conversation. Polling continues on the same cadence so the view
// converges once the engine finishes post-processing; there is no explicit
// "processing complete" signal.
func (f *Feed) SetComplete(conversationID int64) {
	f.switchTo(domain.FeedComplete, conversationID)
}

// Stop cancels the current subscription. Used when no view consumes the feed.
func (f *Feed) Stop() {
	f.mu.Lock()
	f.gen++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.segments = nil
	f.mu.Unlock()
}

// Current returns the latest applied feed snapshot.
func (f *Feed) Current() domain.FeedView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.FeedView{
		Mode:     f.mode,
		Segments: append([]string(nil), f.segments...),
	}
}

// Fetch performs one immediate poll in the current mode, outside the timer
// cadence. Its result goes through the same stale-discard gate.
func (f *Feed) Fetch(ctx context.Context) (domain.FeedView, error) {
	f.mu.Lock()
	gen, mode, conversationID := f.gen, f.mode, f.conversationID
	f.mu.Unlock()

	if err := f.poll(ctx, gen, mode, conversationID); err != nil {
		return domain.FeedView{}, err
	}
	return f.Current(), nil
}

func (f *Feed) switchTo(mode domain.FeedMode, conversationID int64) {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.mode = mode
	f.conversationID = conversationID
	f.segments = nil
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.mu.Unlock()

	f.log.Debug().Str("mode", string(mode)).Int64("conversation", conversationID).Msg("feed mode switched")
	go f.run(ctx, gen, mode, conversationID)
}

func (f *Feed) run(ctx context.Context, gen uint64, mode domain.FeedMode, conversationID int64) {
	// Poll immediately, then on the fixed cadence.
	if err := f.poll(ctx, gen, mode, conversationID); err != nil && ctx.Err() == nil {
		f.log.Debug().Err(err).Msg("feed poll failed")
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.poll(ctx, gen, mode, conversationID); err != nil && ctx.Err() == nil {
				f.log.Debug().Err(err).Msg("feed poll failed")
			}
		}
	}
}

func (f *Feed) poll(ctx context.Context, gen uint64, mode domain.FeedMode, conversationID int64) error {
	var transcript domain.Transcript
	var err error
	switch mode {
	case domain.FeedLive:
		transcript, err = f.engine.LiveTranscription(ctx)
	default:
		transcript, err = f.engine.CompleteTranscription(ctx, conversationID)
	}
	if err != nil {
		return err
	}

	f.apply(gen, mode, transcript.Segments)
	return nil
}

// apply installs a poll result unless the feed has moved on to a newer
// generation, in which case the response is stale and dropped.
func (f *Feed) apply(gen uint64, mode domain.FeedMode, segments []string) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		f.log.Debug().Str("mode", string(mode)).Msg("stale feed response discarded")
		return
	}
	f.segments = append([]string(nil), segments...)
	f.mu.Unlock()

	f.events.TranscriptUpdated(mode, segments)
}
