package fraud

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/securebank/sentinel/internal/idgen"
)

// Keyword rules are ordered tables scanned first-match-wins. A high-risk hit
// short-circuits all further keyword matching for the message; medium-risk
// phrases are only consulted when no high-risk phrase matched.
//
// Phrases cover English, Hindi, Hinglish and Marathi.
var highRiskPhrases = []string{
	// English
	"transfer all", "send all money", "share otp", "give otp", "tell otp",
	"share password", "give password", "urgent transfer", "emergency transfer",
	"immediately transfer", "full amount", "entire balance", "wire everything",
	"all savings", "empty account", "withdraw all",
	// Hindi
	"सारे पैसे भेजो", "otp बताओ", "otp दो", "पासवर्ड बताओ", "तुरंत ट्रांसफर",
	"पूरा पैसा", "सब पैसे", "जल्दी भेजो", "खाता खाली",
	// Hinglish
	"saare paise bhejo", "otp batao", "otp do", "password batao", "turant transfer",
	"poora paisa", "sab paise", "jaldi bhejo", "khata khaali",
	// Marathi
	"सगळे पैसे पाठवा", "otp सांगा", "पासवर्ड सांगा", "तातडीने ट्रान्सफर",
}

var mediumRiskPhrases = []string{
	"otp", "transfer", "send money", "bhejo", "पैसे भेजो", "पाठवा",
	"change password", "change number", "change email", "update phone",
	"password change", "forgot password", "reset password",
	"नंबर बदलो", "पासवर्ड बदलो",
}

var (
	otpPattern = regexp.MustCompile(`(?i)otp|ओटीपी`)

	// Currency-prefixed (₹5,00,000 / Rs. 50000 / INR 75000) and
	// currency-suffixed (50000 rupees) numerals.
	amountPrefixPattern = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)\s*([\d,]+)`)
	amountSuffixPattern = regexp.MustCompile(`(?i)([\d,]+)\s*(?:rupees|rs|₹)`)

	// Self-declared name extraction across the supported languages.
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my name is|i am|i'm|call me)\s+([\p{L}]+)`),
		regexp.MustCompile(`(?:मेरा नाम|माझे नाव)\s+([\p{L}]+)`),
		regexp.MustCompile(`(?i)mera naam\s+([\p{L}]+)`),
	}
)

// Extractor turns one inbound message plus its emotion reading into
// discrete risk events, updating the session counters it depends on.
type Extractor struct {
	params Params
	now    func() time.Time
}

// NewExtractor creates a signal extractor with the given scoring params.
func NewExtractor(params Params) *Extractor {
	return &Extractor{params: params, now: time.Now}
}

func (x *Extractor) event(kind EventKind, detail string, delta int) RiskEvent {
	return RiskEvent{
		ID:         idgen.WithPrefix("evt_"),
		Kind:       kind,
		Detail:     detail,
		ScoreDelta: delta,
		Timestamp:  x.now(),
	}
}

// Extract analyzes a single message against the rule tables and returns all
// events it generated, in detection order. Session counters (OTP attempts,
// claimed names, emotion streak, transaction requests) are advanced as a
// side effect; the caller must hold the session lock.
func (x *Extractor) Extract(s *session, text string, emotion Emotion) []RiskEvent {
	lower := strings.ToLower(text)
	var events []RiskEvent

	// Tiered keyword scan. One high-risk hit is sufficient signal;
	// duplicates in the same message add nothing.
	keywordHit := false
	for _, phrase := range highRiskPhrases {
		if strings.Contains(lower, phrase) {
			events = append(events, x.event(KindHighRiskKeyword, phrase, x.params.HighKeywordDelta))
			keywordHit = true
			break
		}
	}
	if !keywordHit {
		for _, phrase := range mediumRiskPhrases {
			if strings.Contains(lower, phrase) {
				events = append(events, x.event(KindMediumRiskKeyword, phrase, x.params.MediumKeywordDelta))
				break
			}
		}
	}

	// OTP repetition. The first mention is free; the 2nd-3rd cost a small
	// delta, the 4th and later a large one. Each qualifying message
	// contributes once regardless of how often "otp" appears in it.
	if otpPattern.MatchString(text) {
		s.otpAttempts++
		switch {
		case s.otpAttempts > 3:
			events = append(events, x.event(KindExcessiveOTP,
				fmt.Sprintf("%d OTP attempts", s.otpAttempts), x.params.OTPExcessDelta))
		case s.otpAttempts > 1:
			events = append(events, x.event(KindOTPAttempt,
				fmt.Sprintf("%d attempts", s.otpAttempts), x.params.OTPRepeatDelta))
		}
	}

	// Monetary amounts: take the largest numeral in the message.
	if amount, ok := largestAmount(text); ok {
		s.transactionRequests++
		switch {
		case amount >= x.params.LargeAmountThreshold:
			events = append(events, x.event(KindLargeAmount,
				fmt.Sprintf("₹%d", amount), x.params.LargeAmountDelta))
		case amount >= x.params.ModerateAmountThreshold:
			events = append(events, x.event(KindModerateAmount,
				fmt.Sprintf("₹%d", amount), x.params.ModerateAmountDelta))
		}
	}

	// Rapid-succession bonus once the session's amount-bearing requests
	// pass the threshold.
	if s.transactionRequests > x.params.RapidRequestThreshold {
		events = append(events, x.event(KindRapidRequests,
			fmt.Sprintf("%d requests", s.transactionRequests), x.params.RapidRequestDelta))
	}

	// Sustained panic emotions. A single reading is not enough signal; the
	// streak resets on any calm message.
	if IsPanicEmotion(emotion) {
		s.emotionStreak++
		if s.emotionStreak >= x.params.EmotionStreakThreshold {
			events = append(events, x.event(KindStressEmotion, string(emotion), x.params.StressEmotionDelta))
		}
	} else {
		s.emotionStreak = 0
	}

	// Identity consistency: a second, different self-declared name is a
	// strong signal. The first name never triggers.
	if name, ok := extractName(text); ok {
		if len(s.namesClaimed) == 0 {
			s.customerName = name
		} else if !s.namesClaimed[name] {
			events = append(events, x.event(KindIdentityMismatch,
				"New name: "+name, x.params.IdentityMismatchDelta))
		}
		s.namesClaimed[name] = true
	}

	return events
}

// largestAmount parses every currency-tagged numeral in the message and
// returns the largest, or ok=false when none parse to a positive value.
func largestAmount(text string) (int64, bool) {
	var best int64
	found := false

	for _, pattern := range []*regexp.Regexp{amountPrefixPattern, amountSuffixPattern} {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			raw := strings.ReplaceAll(m[1], ",", "")
			amount, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || amount <= 0 {
				continue
			}
			if amount > best {
				best = amount
			}
			found = true
		}
	}

	return best, found
}

// extractName pulls a self-declared name out of the message, normalized to
// lowercase for set membership.
func extractName(text string) (string, bool) {
	for _, pattern := range namePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.ToLower(m[1]), true
		}
	}
	return "", false
}
