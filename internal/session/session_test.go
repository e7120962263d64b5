package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/internal/domain/repository"
	"github.com/ingl3585/xgb-model/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func testConfig() Config {
	return Config{
		Delimiter:        "||",
		LearningResponse: models.TokenLearning,
		WindowSize:       1000,
		RetrainInterval:  100,
		TrainerMinRows:   100,
		TrainerEpochs:    50,
		TrainerRate:      0.2,
	}
}

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	return New("test-1", "127.0.0.1:50000", cfg, testLogger(t), repository.NopMetrics{}, repository.NopSink{})
}

// barLines produces n valid 6-field historical lines with a deterministic
// drifting price so training labels are non-degenerate.
func barLines(n int, start time.Time) string {
	var sb strings.Builder
	price := 100.0
	for i := 0; i < n; i++ {
		if i%3 == 0 {
			price += 1.2
		} else {
			price -= 0.4
		}
		ts := start.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		fmt.Fprintf(&sb, "%s,%.4f,%.4f,%.4f,%.4f,%d\n",
			ts, price-0.2, price+0.6, price-0.6, price, 10+i%5)
	}
	return sb.String()
}

func realtimeLine(i int) string {
	price := 100.0 + float64(i%7)*0.3
	return fmt.Sprintf("%.4f,%.4f,%.4f,%.4f,%d\n", price-0.1, price+0.5, price-0.5, price, 8)
}

func isDecision(tok string) bool {
	switch models.Action(tok) {
	case models.ActionHold, models.ActionBuy, models.ActionSell:
		return true
	}
	return false
}

func TestSessionHistoricalBatchToReady(t *testing.T) {
	s := newTestSession(t, testConfig())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	payload := barLines(150, start) + "||"

	responses := s.HandleChunk(context.Background(), []byte(payload))
	if len(responses) != 1 || responses[0] != models.TokenHistoricalProcessed {
		t.Fatalf("expected HISTORICAL_PROCESSED, got %v", responses)
	}
	if s.Phase() != PhaseReady {
		t.Fatalf("expected READY, got %v", s.Phase())
	}
}

func TestSessionSmallBatchStaysAwaiting(t *testing.T) {
	s := newTestSession(t, testConfig())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	payload := barLines(40, start) + "||"

	responses := s.HandleChunk(context.Background(), []byte(payload))
	if len(responses) != 1 || responses[0] != models.TokenHistoricalError {
		t.Fatalf("expected HISTORICAL_ERROR, got %v", responses)
	}
	if s.Phase() != PhaseAwaitingHistory {
		t.Fatalf("expected AWAITING_HISTORY, got %v", s.Phase())
	}

	// session keeps accepting: a full-size batch afterwards still works
	responses = s.HandleChunk(context.Background(), []byte(barLines(150, start.Add(time.Hour))+"||"))
	if len(responses) != 1 || responses[0] != models.TokenHistoricalProcessed {
		t.Fatalf("expected recovery, got %v", responses)
	}
}

func TestSessionMalformedBatchRejected(t *testing.T) {
	s := newTestSession(t, testConfig())
	responses := s.HandleChunk(context.Background(), []byte("garbage only\n||"))
	if len(responses) != 1 || responses[0] != models.TokenHistoricalError {
		t.Fatalf("expected HISTORICAL_ERROR, got %v", responses)
	}
}

func TestSessionPreHistoryBarsAnswerLearning(t *testing.T) {
	s := newTestSession(t, testConfig())
	responses := s.HandleChunk(context.Background(), []byte(realtimeLine(0)+realtimeLine(1)))
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %v", responses)
	}
	for _, r := range responses {
		if r != models.TokenLearning {
			t.Fatalf("expected LEARNING before history, got %q", r)
		}
	}
}

func TestSessionConfiguredHoldBeforeHistory(t *testing.T) {
	cfg := testConfig()
	cfg.LearningResponse = string(models.ActionHold)
	s := newTestSession(t, cfg)
	responses := s.HandleChunk(context.Background(), []byte(realtimeLine(0)))
	if len(responses) != 1 || responses[0] != "HOLD" {
		t.Fatalf("expected HOLD, got %v", responses)
	}
}

func TestSessionInvalidLineIsContained(t *testing.T) {
	s := newTestSession(t, testConfig())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.HandleChunk(context.Background(), []byte(barLines(150, start)+"||"))
	if s.Phase() != PhaseReady {
		t.Fatalf("setup failed: %v", s.Phase())
	}
	before := s.Bars()

	// 3 fields: dropped with an error token, window untouched
	responses := s.HandleChunk(context.Background(), []byte("100,105,95\n"))
	if len(responses) != 1 || (responses[0] != models.TokenError && responses[0] != models.TokenInvalidData) {
		t.Fatalf("expected ERROR/INVALID_DATA, got %v", responses)
	}
	if s.Bars() != before {
		t.Fatalf("rejected line mutated the window")
	}

	// the next valid bar is processed normally
	responses = s.HandleChunk(context.Background(), []byte(realtimeLine(1)))
	if len(responses) != 1 || !isDecision(responses[0]) {
		t.Fatalf("expected a decision after recovery, got %v", responses)
	}
}

func TestSessionInvariantViolationAnswersInvalidData(t *testing.T) {
	s := newTestSession(t, testConfig())
	// high below low
	responses := s.HandleChunk(context.Background(), []byte("100,95,105,100,5\n"))
	if len(responses) != 1 || responses[0] != models.TokenInvalidData {
		t.Fatalf("expected INVALID_DATA, got %v", responses)
	}
}

func TestSessionDecisionPerBarInOrder(t *testing.T) {
	s := newTestSession(t, testConfig())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.HandleChunk(context.Background(), []byte(barLines(150, start)+"||"))

	var payload strings.Builder
	for i := 0; i < 10; i++ {
		payload.WriteString(realtimeLine(i))
	}
	responses := s.HandleChunk(context.Background(), []byte(payload.String()))
	if len(responses) != 10 {
		t.Fatalf("expected 10 decisions, got %d", len(responses))
	}
	for i, r := range responses {
		if !isDecision(r) {
			t.Fatalf("response %d is not a decision: %q", i, r)
		}
	}
}

func TestSessionRetrainBeforeTriggeringBarDecision(t *testing.T) {
	cfg := testConfig()
	cfg.RetrainInterval = 10
	s := newTestSession(t, cfg)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.HandleChunk(context.Background(), []byte(barLines(150, start)+"||"))

	fitted := s.handle
	if fitted == nil {
		t.Fatalf("setup failed: no handle after batch")
	}
	for i := 0; i < 9; i++ {
		s.HandleChunk(context.Background(), []byte(realtimeLine(i)))
	}
	if s.handle != fitted {
		t.Fatalf("model must not change before the retrain interval")
	}
	responses := s.HandleChunk(context.Background(), []byte(realtimeLine(9)))
	if len(responses) != 1 || !isDecision(responses[0]) {
		t.Fatalf("expected a decision for the triggering bar, got %v", responses)
	}
	if s.handle == fitted {
		t.Fatalf("10th bar should have installed a fresh model")
	}
}

func TestSessionEmptyLinesSkipped(t *testing.T) {
	s := newTestSession(t, testConfig())
	responses := s.HandleChunk(context.Background(), []byte("\n\r\n\n"))
	if len(responses) != 0 {
		t.Fatalf("blank lines must not produce responses, got %v", responses)
	}
}

// Preload lines that arrive in separate reads before the delimiter are
// answered individually, but once the delimiter lands the session must
// end up in the same state as if the whole batch came in one read.
func TestSessionFragmentedHistoryReachesReady(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	payload := barLines(150, start) + "||"

	s := newTestSession(t, testConfig())
	var responses []string
	for i := 0; i < len(payload); i += 97 {
		end := i + 97
		if end > len(payload) {
			end = len(payload)
		}
		responses = append(responses, s.HandleChunk(context.Background(), []byte(payload[i:end]))...)
	}

	if len(responses) == 0 {
		t.Fatal("no responses")
	}
	last := responses[len(responses)-1]
	if last != models.TokenHistoricalProcessed {
		t.Fatalf("final preload response = %q, want HISTORICAL_PROCESSED", last)
	}
	for i, r := range responses[:len(responses)-1] {
		if r != models.TokenLearning {
			t.Fatalf("response %d before history completed = %q, want LEARNING", i, r)
		}
	}
	if s.Phase() != PhaseReady {
		t.Fatalf("expected READY, got %v", s.Phase())
	}
	if s.Bars() != 0 {
		t.Fatalf("bar count = %d after preload, want 0", s.Bars())
	}
}

func TestSessionFragmentedChunksSameOutcome(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	payload := barLines(150, start) + "||" + realtimeLine(0) + realtimeLine(1)

	whole := newTestSession(t, testConfig())
	wantResponses := whole.HandleChunk(context.Background(), []byte(payload))
	if len(wantResponses) != 3 || wantResponses[0] != models.TokenHistoricalProcessed {
		t.Fatalf("unexpected single-read responses: %v", wantResponses)
	}

	split := newTestSession(t, testConfig())
	var got []string
	for i := 0; i < len(payload); i += 97 {
		end := i + 97
		if end > len(payload) {
			end = len(payload)
		}
		got = append(got, split.HandleChunk(context.Background(), []byte(payload[i:end]))...)
	}

	if whole.Phase() != PhaseReady || split.Phase() != PhaseReady {
		t.Fatalf("phases diverged: %v vs %v", whole.Phase(), split.Phase())
	}
	if whole.Bars() != split.Bars() {
		t.Fatalf("fragmentation changed bar count: %d vs %d", split.Bars(), whole.Bars())
	}
	processed := 0
	for _, r := range got {
		if r == models.TokenHistoricalProcessed {
			processed++
		}
	}
	if processed != 1 {
		t.Fatalf("got %d HISTORICAL_PROCESSED responses, want 1", processed)
	}
	// the per-bar decisions after history must not depend on chunking
	if len(got) < 2 {
		t.Fatalf("too few responses: %v", got)
	}
	wantTail := wantResponses[len(wantResponses)-2:]
	gotTail := got[len(got)-2:]
	if gotTail[0] != wantTail[0] || gotTail[1] != wantTail[1] {
		t.Fatalf("fragmentation changed decisions: %v vs %v", gotTail, wantTail)
	}
}
