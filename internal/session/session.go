// Package session runs the three tests of one self-test attempt, hands their
// results to the store and aggregates the verdict.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/danielpatrickdp/selftest-engine/internal/advisory"
	"github.com/danielpatrickdp/selftest-engine/internal/gait"
	"github.com/danielpatrickdp/selftest-engine/internal/gaze"
	"github.com/danielpatrickdp/selftest-engine/internal/landmark"
	"github.com/danielpatrickdp/selftest-engine/internal/logging"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/risk"
	"github.com/danielpatrickdp/selftest-engine/internal/speech"
	"github.com/danielpatrickdp/selftest-engine/internal/timeutil"
)

// #region options

// Options wires a session's analyzers and advisory client.
type Options struct {
	Gaze   gaze.Config
	Gait   gait.Config
	Speech speech.Config

	Clock           timeutil.Clock     // nil for wall time
	Phrases         *speech.PhraseBank // nil for the default bank
	Advisory        advisory.Client    // nil leaves the advice unavailable
	AdvisoryTimeout time.Duration
}

// DefaultOptions returns options with every analyzer at its defaults.
func DefaultOptions() Options {
	return Options{
		Gaze:            gaze.DefaultConfig(),
		Gait:            gait.DefaultConfig(),
		Speech:          speech.DefaultConfig(),
		AdvisoryTimeout: 30 * time.Second,
	}
}

// Journal records the session lifecycle in persistent storage.
type Journal interface {
	EndSession(ctx context.Context, id string) error
	DB() *sql.DB
}

// #endregion options

// #region session

// Session is one attempt at the three tests. Each Run method owns its
// analyzer for the duration of the call; the methods may run concurrently
// with one another but no single test may run twice at once.
type Session struct {
	id      string
	store   results.Store
	journal Journal
	opts    Options
	log     *logrus.Entry

	gaze *gaze.Analyzer
	gait *gait.Analyzer
	agg  *risk.Aggregator
}

// New creates a session over store. journal may be nil.
func New(id string, store results.Store, journal Journal, opts Options) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Phrases == nil {
		opts.Phrases = speech.NewPhraseBank(nil, nil)
	}
	return &Session{
		id:      id,
		store:   store,
		journal: journal,
		opts:    opts,
		log:     logrus.WithFields(logrus.Fields{"component": "session", "session": id}),
		gaze:    gaze.NewAnalyzer(opts.Gaze, opts.Clock),
		gait:    gait.NewAnalyzer(opts.Gait, opts.Clock),
		agg:     risk.NewAggregator(store, opts.Advisory, opts.AdvisoryTimeout),
	}
}

// NewMemory creates a session held only in process memory.
func NewMemory(opts Options) *Session {
	return New("", results.NewMemoryStore(), nil, opts)
}

// Open starts a new persisted session in db.
func Open(ctx context.Context, db *results.SQLiteStore, opts Options) (*Session, error) {
	return Resume(ctx, db, uuid.NewString(), opts)
}

// Resume continues the persisted session id, creating it if needed. Records
// already stored count towards the verdict.
func Resume(ctx context.Context, db *results.SQLiteStore, id string, opts Options) (*Session, error) {
	st, err := db.Session(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return New(id, st, db, opts), nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Store returns the session's result store.
func (s *Session) Store() results.Store { return s.store }

// #endregion session

// #region gaze

// RunGaze runs the gaze window over msgs and stores the result. On
// cancellation nothing is stored and ctx.Err() is returned.
func (s *Session) RunGaze(ctx context.Context, msgs <-chan landmark.IrisMessage) (results.GazeResult, error) {
	res, err := s.gaze.Run(ctx, msgs)
	if err != nil {
		return res, err
	}
	return res, s.save(ctx, res)
}

// LiveGaze returns the continuously updated gaze score.
func (s *Session) LiveGaze() (results.GazeResult, bool) { return s.gaze.Latest() }

// GazeAnalyzer exposes the analyzer for countdown display.
func (s *Session) GazeAnalyzer() *gaze.Analyzer { return s.gaze }

// #endregion gaze

// #region gait

// RunGait runs the walk until stop is closed or the window ends and stores
// the result.
func (s *Session) RunGait(ctx context.Context, frames <-chan landmark.PoseMessage, stop <-chan struct{}) (results.GaitResult, error) {
	res, err := s.gait.Run(ctx, frames, stop)
	if err != nil {
		return res, err
	}
	return res, s.save(ctx, res)
}

// GaitAnalyzer exposes the analyzer for countdown display.
func (s *Session) GaitAnalyzer() *gait.Analyzer { return s.gait }

// #endregion gait

// #region speech

// Phrase picks the target phrase for the next speech attempt.
func (s *Session) Phrase() string { return s.opts.Phrases.Pick() }

// RunSpeech listens through tr for one utterance of phrase and stores the
// result. A silent or failed capture is scored as an empty transcript.
func (s *Session) RunSpeech(ctx context.Context, tr speech.Transcriber, phrase string) (results.SpeechResult, error) {
	text, err := speech.Listen(ctx, tr, s.opts.Speech.ListenTimeout)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return results.SpeechResult{}, ctx.Err()
	case errors.Is(err, speech.ErrEmptyInput):
		s.log.Info("no speech captured before timeout")
	default:
		s.log.WithError(err).Warn("transcription failed")
	}
	return s.ScoreSpeech(ctx, text, phrase)
}

// ScoreSpeech scores a finalized transcript against phrase and stores it.
func (s *Session) ScoreSpeech(ctx context.Context, transcript, phrase string) (results.SpeechResult, error) {
	res := speech.Evaluate(transcript, phrase, s.opts.Speech, s.opts.Clock.Now())
	s.log.WithFields(logrus.Fields{
		"similarity": res.Similarity,
		"distance":   res.Distance,
		"pass":       res.Pass,
		"reason":     res.Reason,
	}).Info("speech scored")
	return res, s.save(ctx, res)
}

// #endregion speech

// #region aggregate

// Verdict returns the current, possibly partial, verdict.
func (s *Session) Verdict(ctx context.Context) (risk.Verdict, error) {
	v, _, err := s.agg.Evaluate(ctx)
	return v, err
}

// Advice returns the advisory state.
func (s *Session) Advice() risk.Advice { return s.agg.Advice() }

// Summary is the final view of a session.
type Summary struct {
	ID       string
	Verdict  risk.Verdict
	Snapshot results.Snapshot
	Advice   risk.Advice
}

// Finish aggregates the session, waits for the advice until ctx is done,
// records the verdict and, for a complete session, closes it in the
// journal. The verdict never depends on the advice outcome.
func (s *Session) Finish(ctx context.Context) (Summary, error) {
	v, snap, err := s.agg.Evaluate(ctx)
	if err != nil {
		return Summary{}, err
	}
	adv := s.agg.Wait(ctx)
	sum := Summary{ID: s.id, Verdict: v, Snapshot: snap, Advice: adv}

	s.log.WithFields(logrus.Fields{
		"tier":     v.Tier,
		"failures": v.FailCount,
		"complete": v.Complete,
		"advice":   adv.State.String(),
	}).Info("session aggregated")

	if s.journal == nil {
		return sum, nil
	}
	// Record even when the advice wait expired.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := logging.LogVerdict(rctx, s.journal.DB(), verdictEntry(s.id, v, snap, adv)); err != nil {
		return sum, err
	}
	if v.Complete {
		if err := s.journal.EndSession(rctx, s.id); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// Close cancels any advisory request in flight.
func (s *Session) Close() { s.agg.Close() }

// #endregion aggregate

// #region helpers

func (s *Session) save(ctx context.Context, rec results.Record) error {
	if err := results.Save(ctx, s.store, rec); err != nil {
		s.log.WithError(err).WithField("key", rec.Key()).Error("result not stored")
		return err
	}
	return nil
}

func verdictEntry(id string, v risk.Verdict, snap results.Snapshot, adv risk.Advice) logging.VerdictEntry {
	var in logging.VerdictInputs
	if g := snap.Gaze; g != nil {
		in.GazeScore, in.GazePass, in.GazeReason = &g.Score, &g.Pass, string(g.Reason)
	}
	if g := snap.Gait; g != nil {
		in.GaitErrors, in.GaitPass, in.GaitReason = &g.ErrorCount, &g.Pass, string(g.Reason)
	}
	if sp := snap.Speech; sp != nil {
		in.Similarity, in.SpeechPass, in.SpeechReason = &sp.Similarity, &sp.Pass, string(sp.Reason)
	}
	raw, _ := json.Marshal(in)
	return logging.VerdictEntry{
		SessionID:    id,
		Tier:         string(v.Tier),
		FailCount:    v.FailCount,
		Complete:     v.Complete,
		InputsJSON:   string(raw),
		AdviceStatus: adv.State.String(),
		Advice:       adv.Text,
	}
}

// #endregion helpers
