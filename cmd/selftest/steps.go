package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danielpatrickdp/selftest-engine/internal/landmark"
	"github.com/danielpatrickdp/selftest-engine/internal/session"
	"github.com/danielpatrickdp/selftest-engine/internal/speech"
	"github.com/danielpatrickdp/selftest-engine/internal/stream"
)

// step runs one test of s. in supplies console lines.
type step func(ctx context.Context, a *app, s *session.Session, in *speech.LineTranscriber) error

// #region gaze

func stepGaze(ctx context.Context, a *app, s *session.Session, _ *speech.LineTranscriber) error {
	feed := stream.Dial[landmark.IrisMessage](ctx, a.cfg.Streams.GazeURL, stream.Options{
		ReconnectDelay: a.cfg.Streams.ReconnectDelay,
		Buffer:         64,
	})
	defer feed.Close()

	fmt.Fprintf(os.Stderr, "gaze: follow the target with your eyes for %s\n", a.cfg.Gaze.Duration)
	done := make(chan struct{})
	go progress(done, func() string {
		if r, ok := s.LiveGaze(); ok {
			return fmt.Sprintf("gaze: %s, score %.1f over %d samples", feed.Status(), r.Score, r.SampleCount)
		}
		return fmt.Sprintf("gaze: %s, collecting", feed.Status())
	})
	res, err := s.RunGaze(ctx, feed.Messages())
	close(done)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "gaze: score %.2f, pass %v (%s)\n", res.Score, res.Pass, res.Reason)
	return nil
}

// #endregion gaze

// #region gait

func stepGait(ctx context.Context, a *app, s *session.Session, in *speech.LineTranscriber) error {
	feed := stream.Dial[landmark.PoseMessage](ctx, a.cfg.Streams.GaitURL, stream.Options{
		ReconnectDelay: a.cfg.Streams.ReconnectDelay,
		Buffer:         64,
	})
	defer feed.Close()

	fmt.Fprintf(os.Stderr, "walk: starting in %s, press Enter when done\n", a.cfg.Gait.Countdown)
	stop := make(chan struct{})
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if _, err := in.Transcribe(sctx); err == nil || errors.Is(err, io.EOF) {
			close(stop)
		}
	}()

	done := make(chan struct{})
	go progress(done, func() string {
		return fmt.Sprintf("walk: %s, errors %d", feed.Status(), s.GaitAnalyzer().ErrorCount())
	})
	res, err := s.RunGait(ctx, feed.Messages(), stop)
	close(done)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "walk: errors %d, pass %v (%s)\n", res.ErrorCount, res.Pass, res.Reason)
	return nil
}

// #endregion gait

// #region speech

func stepSpeech(ctx context.Context, a *app, s *session.Session, in *speech.LineTranscriber) error {
	phrase := s.Phrase()
	fmt.Fprintf(os.Stderr, "speech: say %q, then type what was heard (%s)\n", phrase, a.cfg.Speech.ListenTimeout)
	res, err := s.RunSpeech(ctx, in, phrase)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "speech: similarity %.0f%%, pass %v (%s)\n", res.Similarity, res.Pass, res.Reason)
	return nil
}

// #endregion speech

func progress(done <-chan struct{}, line func() string) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			fmt.Fprintln(os.Stderr, line())
		}
	}
}
