package models

import "time"

// Action is a final trading decision emitted for one accepted bar.
type Action string

const (
	ActionHold Action = "HOLD"
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Protocol status tokens sent on the wire alongside decisions. Each processed
// input line yields exactly one token.
const (
	TokenHistoricalProcessed = "HISTORICAL_PROCESSED"
	TokenHistoricalError     = "HISTORICAL_ERROR"
	TokenLearning            = "LEARNING"
	TokenError               = "ERROR"
	TokenInvalidData         = "INVALID_DATA"
)

// Class labels produced by the classifier.
const (
	ClassHold = 0
	ClassBuy  = 1
	ClassSell = 2
)

// DecisionEvent is the audit record published for every scored bar.
type DecisionEvent struct {
	SessionID   string    `json:"session_id"`
	RemoteAddr  string    `json:"remote_addr"`
	Timestamp   time.Time `json:"timestamp"`
	BarTime     time.Time `json:"bar_time"`
	Close       float64   `json:"close"`
	Action      Action    `json:"action"`
	Class       int       `json:"class"`
	Probability float64   `json:"probability"`
	Threshold   float64   `json:"threshold"`
	Reason      string    `json:"reason"`
}
