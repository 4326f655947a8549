// Package fraud implements real-time risk scoring for conversational
// banking sessions.
//
// Every inbound message is mined for discrete risk events (keyword hits,
// OTP repetition, large amounts, identity inconsistency, sustained panic
// emotions). Events accumulate into a 0-100 session score, the score maps
// onto a low/medium/high level, and the level drives an escalation state
// machine: high risk creates an incident ticket and fans out alerts exactly
// once per session, then blocks the conversation until the session is reset.
package fraud

import (
	"time"
)

// Level classifies the session risk score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ControlState is the escalation state machine's verdict for a session.
type ControlState string

const (
	StateMonitoring       ControlState = "MONITORING"
	StateStepUpRequired   ControlState = "STEP_UP_REQUIRED"
	StateEscalatedBlocked ControlState = "ESCALATED_BLOCKED"
)

// EventKind identifies the trigger behind a risk event.
type EventKind string

const (
	KindHighRiskKeyword   EventKind = "high_risk_keyword"
	KindMediumRiskKeyword EventKind = "medium_risk_keyword"
	KindOTPAttempt        EventKind = "otp_attempt"
	KindExcessiveOTP      EventKind = "excessive_otp"
	KindLargeAmount       EventKind = "large_amount"
	KindModerateAmount    EventKind = "moderate_amount"
	KindRapidRequests     EventKind = "rapid_transactions"
	KindStressEmotion     EventKind = "stress_emotion"
	KindIdentityMismatch  EventKind = "identity_mismatch"
)

// Emotion is an out-of-band emotion reading attached to a message.
type Emotion string

// panicEmotions are the stress-signal readings that count toward the
// session emotion streak.
var panicEmotions = map[Emotion]bool{
	"fearful":   true,
	"angry":     true,
	"surprised": true,
	"disgusted": true,
}

// IsPanicEmotion reports whether e is a stress signal.
func IsPanicEmotion(e Emotion) bool {
	return panicEmotions[e]
}

// RiskEvent is a single detected risk trigger. Immutable once appended to
// a session's event log.
type RiskEvent struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	Detail     string    `json:"detail"`
	ScoreDelta int       `json:"scoreDelta"`
	Timestamp  time.Time `json:"timestamp"`
}

// Params holds the scoring constants. The numeric values are empirically
// tuned and treated as configuration; nothing in the engine derives them.
type Params struct {
	HighKeywordDelta      int
	MediumKeywordDelta    int
	OTPRepeatDelta        int
	OTPExcessDelta        int
	LargeAmountDelta      int
	ModerateAmountDelta   int
	RapidRequestDelta     int
	StressEmotionDelta    int
	IdentityMismatchDelta int

	LargeAmountThreshold    int64
	ModerateAmountThreshold int64
	RapidRequestThreshold   int
	EmotionStreakThreshold  int

	MediumLevelBoundary int
	HighLevelBoundary   int
}

// DefaultParams returns the production rule-set values.
func DefaultParams() Params {
	return Params{
		HighKeywordDelta:      25,
		MediumKeywordDelta:    8,
		OTPRepeatDelta:        5,
		OTPExcessDelta:        20,
		LargeAmountDelta:      15,
		ModerateAmountDelta:   8,
		RapidRequestDelta:     10,
		StressEmotionDelta:    10,
		IdentityMismatchDelta: 20,

		LargeAmountThreshold:    100000,
		ModerateAmountThreshold: 50000,
		RapidRequestThreshold:   3,
		EmotionStreakThreshold:  2,

		MediumLevelBoundary: 31,
		HighLevelBoundary:   61,
	}
}

// LevelFor derives the discrete risk level from a score. The level is
// always recomputed from the score, never stored independently.
func (p Params) LevelFor(score int) Level {
	switch {
	case score >= p.HighLevelBoundary:
		return LevelHigh
	case score >= p.MediumLevelBoundary:
		return LevelMedium
	default:
		return LevelLow
	}
}

// MaxScore caps the cumulative session risk score.
const MaxScore = 100
