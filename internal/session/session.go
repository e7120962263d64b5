// Package session orchestrates the per-connection model lifecycle.
//
// A session owns its frame decoder, window, and model handle outright;
// nothing is shared across connections, so ingestion, training, and
// inference interleave on the connection's goroutine without locks. The
// phase machine is AWAITING_HISTORY -> TRAINING -> READY; READY re-enters
// TRAINING transiently for scheduled retrains without giving up its
// serving behavior.
//
// Policy choices for the behaviors the protocol leaves open: decisions
// wait for the first successful training after historical framing; a
// scheduled retrain runs synchronously before the triggering bar's
// decision but a retrain failure silently keeps the previous handle in
// service.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/internal/domain/repository"
	"github.com/ingl3585/xgb-model/internal/features"
	"github.com/ingl3585/xgb-model/internal/market"
	"github.com/ingl3585/xgb-model/internal/model"
	"github.com/ingl3585/xgb-model/internal/policy"
	"github.com/ingl3585/xgb-model/internal/stream"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

// Phase is the session lifecycle state.
type Phase int

const (
	PhaseAwaitingHistory Phase = iota
	PhaseTraining
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingHistory:
		return "awaiting_history"
	case PhaseTraining:
		return "training"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Config carries the per-session knobs.
type Config struct {
	Delimiter        string
	LearningResponse string // token for pre-history bars: LEARNING or HOLD
	WindowSize       int
	RetrainInterval  int
	Features         features.Config
	TrainerMinRows   int
	TrainerEpochs    int
	TrainerRate      float64
	Policy           policy.Config
}

// Session is the per-connection unit owning one decoder, window, and model
// handle.
type Session struct {
	id         string
	remoteAddr string
	cfg        Config

	log     *logger.Logger
	metrics repository.Metrics
	audit   repository.AuditSink

	decoder *stream.Decoder
	window  *market.Window
	engine  *features.Engine
	trainer *model.Trainer
	policy  *policy.Policy

	// mu serializes HandleChunk against the status accessors; each
	// connection goroutine is the sole writer.
	mu       sync.Mutex
	handle   *model.Handle
	phase    Phase
	barCount int
	started  time.Time

	now func() time.Time
}

// New constructs a session with fresh state.
func New(id, remoteAddr string, cfg Config, log *logger.Logger, metrics repository.Metrics, audit repository.AuditSink) *Session {
	if cfg.LearningResponse == "" {
		cfg.LearningResponse = models.TokenLearning
	}
	if cfg.RetrainInterval <= 0 {
		cfg.RetrainInterval = 100
	}
	s := &Session{
		id:         id,
		remoteAddr: remoteAddr,
		cfg:        cfg,
		log:        log.With(logger.String("session", id), logger.String("remote", remoteAddr)),
		metrics:    metrics,
		audit:      audit,
		decoder:    stream.NewDecoder(cfg.Delimiter),
		window:     market.NewWindow(cfg.WindowSize),
		engine:     features.NewEngine(cfg.Features),
		trainer:    model.NewTrainer(cfg.TrainerMinRows, cfg.TrainerEpochs, cfg.TrainerRate),
		policy:     policy.New(cfg.Policy),
		phase:      PhaseAwaitingHistory,
		started:    time.Now(),
		now:        time.Now,
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Bars returns the number of accepted real-time bars.
func (s *Session) Bars() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.barCount
}

// Started returns the session start time.
func (s *Session) Started() time.Time { return s.started }

// HandleChunk feeds one raw chunk through the decoder and processes every
// completed event, returning response tokens in input order. One token per
// processed line; blank lines are skipped silently.
func (s *Session) HandleChunk(ctx context.Context, chunk []byte) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var responses []string
	for _, ev := range s.decoder.Feed(chunk) {
		switch ev.Kind {
		case stream.EventHistoricalBatch:
			responses = append(responses, s.onHistoricalBatch(ctx, ev.Text))
		case stream.EventBarLine:
			if tok, ok := s.onBarLine(ctx, ev.Text); ok {
				responses = append(responses, tok)
			}
		}
	}
	return responses
}

func (s *Session) onHistoricalBatch(ctx context.Context, text string) string {
	bars, malformed, err := stream.ParseBatch(text, s.now())
	if err != nil && s.window.Len() == 0 {
		s.log.Warn("historical batch rejected", logger.Error(err))
		s.metrics.RecordInputError("malformed_batch")
		return models.TokenHistoricalError
	}
	if err != nil {
		// The preload was fragmented across reads and its lines were
		// already consumed one by one; the window holds them, and the
		// batch text is only the residue after the last newline.
		bars = nil
	}
	if malformed > 0 {
		s.log.Warn("historical batch has malformed lines",
			logger.Int("malformed", malformed), logger.Int("accepted", len(bars)))
		s.metrics.RecordInputError("malformed_batch_line")
	}
	for range bars {
		s.metrics.RecordBar("historical")
	}

	// The delimiter marks end-of-history. Bars that arrived line by line
	// before it are part of the preload, regardless of how the stream was
	// chunked on the wire.
	if s.window.Len() > 0 {
		bars = append(s.window.Snapshot(), bars...)
	}
	s.window.BulkLoad(bars)
	s.log.Info("historical data loaded", logger.Int("bars", s.window.Len()))

	s.phase = PhaseTraining
	if err := s.train(); err != nil {
		s.log.Error("historical training failed", logger.Error(err))
		s.phase = PhaseAwaitingHistory
		return models.TokenHistoricalError
	}
	s.phase = PhaseReady
	// Retrain cadence counts bars served after history completes, so the
	// schedule does not depend on how many preload lines arrived outside
	// the batch text.
	s.barCount = 0
	s.log.Info("model ready, signals will start")
	return models.TokenHistoricalProcessed
}

func (s *Session) onBarLine(ctx context.Context, line string) (string, bool) {
	bar, err := stream.ParseBarLine(line, s.now())
	switch {
	case err == stream.ErrEmptyLine:
		return "", false
	case err != nil:
		return s.rejectLine(err), true
	}

	s.window.Append(bar)
	s.barCount++
	s.metrics.RecordBar("realtime")

	if s.phase != PhaseReady {
		s.maybeTrainEarly()
		return s.cfg.LearningResponse, true
	}

	// a retrain scheduled by this bar completes (or is abandoned) before
	// the decision for it is computed
	if s.barCount%s.cfg.RetrainInterval == 0 {
		s.phase = PhaseTraining
		if err := s.train(); err != nil {
			s.log.Warn("retrain failed, keeping previous model", logger.Error(err))
		} else {
			s.log.Info("model retrained", logger.Int("bars", s.barCount))
		}
		s.phase = PhaseReady
	}

	return string(s.decide(ctx, bar)), true
}

func (s *Session) rejectLine(err error) string {
	switch err.(type) {
	case *models.ValidationError:
		s.metrics.RecordInputError("validation")
		s.log.Warn("bar rejected", logger.Error(err))
		return models.TokenInvalidData
	default:
		s.metrics.RecordInputError("parse")
		s.log.Warn("line rejected", logger.Error(err))
		return models.TokenError
	}
}

// train fits a new handle against the current window snapshot and swaps it
// in on success. The old handle stays in service on any failure.
func (s *Session) train() error {
	start := time.Now()
	snapshot := s.window.Snapshot()
	X, y := s.engine.TrainingSet(snapshot)

	handle, err := s.trainer.Fit(features.Columns, X, y)
	if err != nil {
		s.metrics.RecordTraining("error", 0)
		return err
	}
	s.handle = handle
	s.metrics.RecordTraining("ok", time.Since(start).Seconds())
	s.log.Info("model fitted",
		logger.Int("rows", len(X)),
		logger.Duration("took", time.Since(start)))
	return nil
}

// maybeTrainEarly fits opportunistically once enough bars arrive before
// the historical delimiter, so READY is reached immediately when the batch
// lands. Signals still wait for the batch.
func (s *Session) maybeTrainEarly() {
	if s.handle != nil || s.window.Len() < s.cfg.TrainerMinRows {
		return
	}
	X, _ := s.engine.TrainingSet(s.window.Snapshot())
	if len(X) < s.cfg.TrainerMinRows {
		return
	}
	if err := s.train(); err != nil {
		s.log.Debug("early training attempt failed", logger.Error(err))
		return
	}
	s.log.Info("model ready, waiting for historical data delimiter")
}

func (s *Session) decide(ctx context.Context, bar models.Bar) models.Action {
	snapshot := s.window.Snapshot()

	row, ok := s.engine.InferenceRow(snapshot)
	if !ok {
		s.metrics.RecordDecision(string(models.ActionHold))
		return models.ActionHold
	}

	class, probability, err := s.handle.Score(row)
	if err != nil {
		s.log.Error("scoring failed", logger.Error(err))
		s.metrics.RecordDecision(string(models.ActionHold))
		return models.ActionHold
	}

	state := s.engine.MarketState(snapshot)
	threshold := s.policy.Threshold()
	action, reason := s.policy.Decide(class, probability, state)

	s.metrics.RecordDecision(string(action))
	s.log.Debug("decision",
		logger.String("action", string(action)),
		logger.String("reason", reason),
		logger.Int("class", class),
		logger.Float64("probability", probability))

	event := &models.DecisionEvent{
		SessionID:   s.id,
		RemoteAddr:  s.remoteAddr,
		Timestamp:   s.now(),
		BarTime:     bar.Timestamp,
		Close:       bar.Close,
		Action:      action,
		Class:       class,
		Probability: probability,
		Threshold:   threshold,
		Reason:      reason,
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.log.Warn("audit record failed", logger.Error(err))
	}

	return action
}
