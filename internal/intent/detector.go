// Package intent classifies conversational banking messages against a
// closed intent vocabulary and detects the message language (English,
// Hindi, Marathi, Hinglish).
package intent

import (
	"regexp"
	"strings"
)

// rule binds one intent name to its patterns. Rules are ordered; the first
// pattern that matches wins.
type rule struct {
	name     string
	patterns []*regexp.Regexp
}

func mustAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

var rules = []rule{
	{"greeting", mustAll(
		`(?i)^(hi|hello|hey|good\s*(morning|afternoon|evening)|howdy)\b`,
		`^(नमस्ते|नमस्कार|हैलो)`,
		`(?i)^(namaste|namaskar)`,
	)},
	{"farewell", mustAll(
		`(?i)\b(bye|goodbye|take care|good night)\b`,
		`(अलविदा|बाय)`,
		`(?i)\b(alvida)\b`,
	)},
	{"balance", mustAll(
		`(?i)\b(balance|account\s*balance|how much|kitna|balance\s*check)\b`,
		`(बैलेंस|खाता|कितना पैसा|शिल्लक)`,
		`(?i)\b(kitna paisa|khata)\b`,
	)},
	{"transfer", mustAll(
		`(?i)\b(transfer|send\s*money|bhej|payment|pay\s+to)\b`,
		`(ट्रांसफर|पैसे भेजो|भेजना|पाठवा)`,
		`(?i)\b(paise bhejo|bhejdo)\b`,
	)},
	{"transactions", mustAll(
		`(?i)\b(transaction|statement|history|recent|passbook)\b`,
		`(लेनदेन|स्टेटमेंट|हिस्ट्री)`,
	)},
	{"card_block", mustAll(
		`(?i)\b(block\s*card|card\s*block|lost\s*card|stolen\s*card|freeze\s*card)\b`,
		`(कार्ड\s*ब्लॉक|कार्ड\s*खो गया|कार्ड\s*चोरी)`,
	)},
	{"loan", mustAll(
		`(?i)\b(loan|emi|home\s*loan|personal\s*loan|agriculture\s*loan|loan\s*status|karz)\b`,
		`(लोन|ईएमआई|कर्ज|कर्जा)`,
	)},
	{"otp", mustAll(
		`(?i)\b(otp|one\s*time|verification\s*code)\b`,
		`(ओटीपी)`,
	)},
	{"help", mustAll(
		`(?i)\b(help|what\s*can\s*you|features|kya kar sakte)\b`,
		`(मदद|सहायता|मदत)`,
	)},
	{"thanks", mustAll(
		`(?i)\b(thanks|thank\s*you|shukriya|dhanyavaad)\b`,
		`(धन्यवाद|शुक्रिया)`,
	)},
	{"name_intro", mustAll(
		`(?i)\b(?:my name is|i(?:'m| am)|call me)\s+\w+`,
		`(?:मेरा नाम|माझे नाव)\s+\S+`,
		`(?i)\b(?:mera naam)\s+\w+`,
	)},
	{"government_schemes", mustAll(
		`(?i)\b(scheme|government|sarkari|yojana|pm kisan|mudra|subsid)`,
		`(योजना|सरकारी|सब्सिडी)`,
	)},
	{"kyc", mustAll(
		`(?i)\b(kyc|know your customer|aadhar|aadhaar|pan card|identity|id proof)\b`,
		`(केवाईसी|आधार|पैन कार्ड)`,
	)},
	{"complaint", mustAll(
		`(?i)\b(complaint|complain|problem|issue|shikayat|grievance)\b`,
		`(शिकायत|समस्या|तक्रार)`,
	)},
	{"fraud_reporting", mustAll(
		`(?i)\b(fraud|scam|cheat|dhokha|thagi|unauthori[sz]ed)\b`,
		`(धोखा|ठगी|फ्रॉड)`,
	)},
	{"whatsapp_doc", mustAll(
		`(?i)\b(whatsapp|send\s*document|document\s*bhejo)\b`,
		`(व्हाट्सएप|डॉक्यूमेंट भेजो)`,
	)},
}

// Detector is a stateless rule-based classifier. The zero value is not
// usable; call New.
type Detector struct{}

// New returns a ready classifier. Rule tables are package-level and
// compiled once.
func New() *Detector {
	return &Detector{}
}

// Classify returns the first matching intent ("general" when nothing
// matches) and the detected language of the text.
func (d *Detector) Classify(text string) (string, string) {
	return d.Intent(text), DetectLanguage(text)
}

// Intent matches the text against the ordered rule table.
func (d *Detector) Intent(text string) string {
	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(text) {
				return r.name
			}
		}
	}
	return "general"
}

var devanagari = regexp.MustCompile(`[\x{0900}-\x{097F}]`)

var marathiMarkers = []string{
	"कसे", "आहे", "काय", "माझ", "तुमच", "कृपया", "धन्यवाद", "नाही", "होय",
	"मला", "हवे", "हवा", "सांगा", "कधी", "केव्हा", "मिळेल", "झाले", "करा",
	"आम्ही", "तुम्ही", "पाहिजे", "असेल", "नको", "बोला", "समजत",
}

var hindiMarkers = []string{
	"है", "हैं", "का", "की", "के", "में", "मेरा", "मेरी", "कहाँ", "कहां",
	"क्या", "कब", "कैसे", "कृपया", "धन्यवाद", "नहीं", "हाँ", "चाहिए",
	"बताइए", "बताओ", "मुझे", "आप", "यह", "वह", "कर", "करो", "दो",
	"मिलेगा", "हो", "रहा", "रही", "वाला", "वाली", "अभी", "जल्दी",
}

var hinglishMarkers = map[string]bool{}

func init() {
	for _, w := range []string{
		"mera", "meri", "kaha", "kahan", "kab", "kaise", "kya", "hai", "hain",
		"nahi", "nahin", "haan", "ji", "bhai", "yaar", "chahiye", "batao",
		"bataiye", "aur", "ya", "mujhe", "aap", "apna", "apni",
		"kar", "karo", "do", "de", "mil", "milega", "ho", "raha", "rahi",
		"wala", "wali", "abhi", "jaldi", "theek", "accha", "sahi", "galat",
		"samajh", "samjha", "samjho", "dekho", "dekh", "suno",
	} {
		hinglishMarkers[w] = true
	}
}

var nonAlpha = regexp.MustCompile(`[^a-z]`)

// DetectLanguage classifies the text as "english", "hindi", "marathi" or
// "hinglish". Devanagari script splits Hindi from Marathi on marker-word
// counts; Latin script is Hinglish when enough romanized Hindi markers
// appear.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return "english"
	}

	if devanagari.MatchString(text) {
		marathiScore, hindiScore := 0, 0
		for _, m := range marathiMarkers {
			if strings.Contains(text, m) {
				marathiScore++
			}
		}
		for _, m := range hindiMarkers {
			if strings.Contains(text, m) {
				hindiScore++
			}
		}
		if marathiScore > hindiScore && marathiScore >= 1 {
			return "marathi"
		}
		return "hindi"
	}

	words := strings.Fields(strings.ToLower(text))
	hinglish := 0
	for _, w := range words {
		if hinglishMarkers[nonAlpha.ReplaceAllString(w, "")] {
			hinglish++
		}
	}
	if len(words) > 0 && float64(hinglish)/float64(len(words)) >= 0.15 {
		return "hinglish"
	}
	if hinglish >= 2 {
		return "hinglish"
	}

	return "english"
}
