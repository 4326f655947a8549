package fraud

import (
	"testing"
)

func eventsOfKind(events []RiskEvent, kind EventKind) []RiskEvent {
	var out []RiskEvent
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func TestLevelBoundaries(t *testing.T) {
	p := DefaultParams()

	cases := []struct {
		score int
		want  Level
	}{
		{0, LevelLow},
		{30, LevelLow},
		{31, LevelMedium},
		{60, LevelMedium},
		{61, LevelHigh},
		{100, LevelHigh},
	}
	for _, tc := range cases {
		if got := p.LevelFor(tc.score); got != tc.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestHighKeywordFiresOncePerMessage(t *testing.T) {
	x := NewExtractor(DefaultParams())
	s := newSession("s1")

	// Contains two high-risk phrases and an OTP mention; the keyword tier
	// must emit exactly one high-risk event and no medium-risk event.
	events := x.Extract(s, "please transfer all my savings now, share otp", "neutral")

	high := eventsOfKind(events, KindHighRiskKeyword)
	if len(high) != 1 {
		t.Fatalf("got %d high_risk_keyword events, want 1", len(high))
	}
	if high[0].ScoreDelta != 25 {
		t.Errorf("high keyword delta = %d, want 25", high[0].ScoreDelta)
	}
	if n := len(eventsOfKind(events, KindMediumRiskKeyword)); n != 0 {
		t.Errorf("got %d medium_risk_keyword events, want 0 when a high phrase matched", n)
	}

	total := 0
	for _, ev := range events {
		total += ev.ScoreDelta
	}
	if total < 25 {
		t.Errorf("total delta = %d, want >= 25", total)
	}
}

func TestMediumKeywordOnlyWithoutHigh(t *testing.T) {
	x := NewExtractor(DefaultParams())
	s := newSession("s1")

	events := x.Extract(s, "I want to transfer some money to my friend", "neutral")

	if n := len(eventsOfKind(events, KindHighRiskKeyword)); n != 0 {
		t.Errorf("got %d high_risk_keyword events, want 0", n)
	}
	medium := eventsOfKind(events, KindMediumRiskKeyword)
	if len(medium) != 1 {
		t.Fatalf("got %d medium_risk_keyword events, want 1", len(medium))
	}
	if medium[0].ScoreDelta != 8 {
		t.Errorf("medium keyword delta = %d, want 8", medium[0].ScoreDelta)
	}
}

func TestOTPRepetitionEscalates(t *testing.T) {
	x := NewExtractor(DefaultParams())
	s := newSession("s1")

	// First mention is free, second and third cost the repeat delta, the
	// fourth jumps to the excessive delta.
	wantKinds := []struct {
		kind  EventKind
		delta int
	}{
		{"", 0},
		{KindOTPAttempt, 5},
		{KindOTPAttempt, 5},
		{KindExcessiveOTP, 20},
	}

	for i, want := range wantKinds {
		events := x.Extract(s, "what is the otp", "neutral")

		attempts := eventsOfKind(events, KindOTPAttempt)
		excess := eventsOfKind(events, KindExcessiveOTP)

		switch want.kind {
		case "":
			if len(attempts)+len(excess) != 0 {
				t.Errorf("message %d: got OTP events on first mention, want none", i+1)
			}
		case KindOTPAttempt:
			if len(attempts) != 1 || len(excess) != 0 {
				t.Fatalf("message %d: got %d otp_attempt / %d excessive_otp, want 1/0",
					i+1, len(attempts), len(excess))
			}
			if attempts[0].ScoreDelta != want.delta {
				t.Errorf("message %d: delta = %d, want %d", i+1, attempts[0].ScoreDelta, want.delta)
			}
		case KindExcessiveOTP:
			if len(excess) != 1 || len(attempts) != 0 {
				t.Fatalf("message %d: got %d otp_attempt / %d excessive_otp, want 0/1",
					i+1, len(attempts), len(excess))
			}
			if excess[0].ScoreDelta != want.delta {
				t.Errorf("message %d: delta = %d, want %d", i+1, excess[0].ScoreDelta, want.delta)
			}
		}
	}

	if s.otpAttempts != 4 {
		t.Errorf("otpAttempts = %d, want 4", s.otpAttempts)
	}
}

func TestOTPDevanagariMatches(t *testing.T) {
	x := NewExtractor(DefaultParams())
	s := newSession("s1")

	x.Extract(s, "मुझे ओटीपी भेजो", "neutral")
	if s.otpAttempts != 1 {
		t.Errorf("otpAttempts = %d, want 1 for Devanagari OTP", s.otpAttempts)
	}
}

func TestAmountThresholds(t *testing.T) {
	cases := []struct {
		name string
		text string
		kind EventKind
	}{
		{"large prefixed", "send ₹1,50,000 now", KindLargeAmount},
		{"large with rs", "rs. 200000 please", KindLargeAmount},
		{"moderate suffixed", "I need 50000 rupees", KindModerateAmount},
		{"below threshold", "just ₹5000", ""},
		{"largest wins", "maybe ₹40,000 or 1,20,000 rupees", KindLargeAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x := NewExtractor(DefaultParams())
			s := newSession("s1")
			events := x.Extract(s, tc.text, "neutral")

			large := eventsOfKind(events, KindLargeAmount)
			moderate := eventsOfKind(events, KindModerateAmount)

			switch tc.kind {
			case KindLargeAmount:
				if len(large) != 1 || len(moderate) != 0 {
					t.Errorf("got %d large / %d moderate, want 1/0", len(large), len(moderate))
				}
			case KindModerateAmount:
				if len(moderate) != 1 || len(large) != 0 {
					t.Errorf("got %d large / %d moderate, want 0/1", len(large), len(moderate))
				}
			default:
				if len(large)+len(moderate) != 0 {
					t.Errorf("got amount events for sub-threshold text")
				}
			}

			if s.transactionRequests != 1 {
				t.Errorf("transactionRequests = %d, want 1", s.transactionRequests)
			}
		})
	}
}

func TestRapidRequestBonus(t *testing.T) {
	x := NewExtractor(DefaultParams())
	s := newSession("s1")

	for i := 0; i < 3; i++ {
		events := x.Extract(s, "send ₹10,000", "neutral")
		if n := len(eventsOfKind(events, KindRapidRequests)); n != 0 {
			t.Fatalf("request %d: got rapid_transactions event below threshold", i+1)
		}
	}

	events := x.Extract(s, "send ₹10,000", "neutral")
	rapid := eventsOfKind(events, KindRapidRequests)
	if len(rapid) != 1 {
		t.Fatalf("got %d rapid_transactions events on 4th request, want 1", len(rapid))
	}
	if rapid[0].ScoreDelta != 10 {
		t.Errorf("rapid delta = %d, want 10", rapid[0].ScoreDelta)
	}
}

func TestEmotionStreak(t *testing.T) {
	x := NewExtractor(DefaultParams())
	s := newSession("s1")

	if n := len(eventsOfKind(x.Extract(s, "hello", "fearful"), KindStressEmotion)); n != 0 {
		t.Errorf("single panic reading produced a stress event")
	}
	if n := len(eventsOfKind(x.Extract(s, "hello again", "angry"), KindStressEmotion)); n != 1 {
		t.Errorf("second consecutive panic reading produced %d stress events, want 1", n)
	}

	// A calm message resets the streak.
	x.Extract(s, "okay", "neutral")
	if s.emotionStreak != 0 {
		t.Errorf("emotionStreak = %d after calm message, want 0", s.emotionStreak)
	}
	if n := len(eventsOfKind(x.Extract(s, "hello", "fearful"), KindStressEmotion)); n != 0 {
		t.Errorf("streak did not restart from zero after reset")
	}
}

func TestIdentityMismatch(t *testing.T) {
	x := NewExtractor(DefaultParams())
	s := newSession("s1")

	if n := len(eventsOfKind(x.Extract(s, "Hi, my name is Asha", "neutral"), KindIdentityMismatch)); n != 0 {
		t.Fatalf("first declared name produced %d mismatch events, want 0", n)
	}

	events := x.Extract(s, "Actually my name is Rahul", "neutral")
	mismatch := eventsOfKind(events, KindIdentityMismatch)
	if len(mismatch) != 1 {
		t.Fatalf("got %d identity_mismatch events, want 1", len(mismatch))
	}
	if mismatch[0].ScoreDelta != 20 {
		t.Errorf("mismatch delta = %d, want 20", mismatch[0].ScoreDelta)
	}

	// Repeating a known name is not a mismatch.
	if n := len(eventsOfKind(x.Extract(s, "my name is Asha", "neutral"), KindIdentityMismatch)); n != 0 {
		t.Errorf("known name produced a mismatch event")
	}
}

func TestIdentityMismatchDevanagari(t *testing.T) {
	x := NewExtractor(DefaultParams())
	s := newSession("s1")

	x.Extract(s, "मेरा नाम आशा है", "neutral")
	events := x.Extract(s, "मेरा नाम राहुल है", "neutral")
	if n := len(eventsOfKind(events, KindIdentityMismatch)); n != 1 {
		t.Errorf("got %d identity_mismatch events for Devanagari names, want 1", n)
	}
}
