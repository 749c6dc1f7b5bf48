package classify

import (
	"context"
	"strings"

	"github.com/guestpulse/guestpulse/pkg/models"
)

// Keyword lists are bilingual (English/Indonesian) to match the review
// corpus. A hit in either direction counts once, so a review mixing praise
// and complaints falls back to the rating prior.
var (
	negativeKeywords = []string{
		"late", "spill", "tumpah", "dirty", "kotor", "rude", "kasar",
		"refund", "cold", "uncooked", "poison", "telat", "very late",
	}
	positiveKeywords = []string{
		"enak", "great", "love", "mantap", "lezat", "awesome",
		"fast service", "puas", "worth", "terima kasih",
	}
)

// topicKeywords maps each taxonomy topic to its trigger keywords. Order
// determines the order of derived topics.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"wait_time", []string{"queue", "wait", "lama", "nunggu", "antri", "antre"}},
	{"packaging", []string{"tumpah", "spill", "kemasan", "bungkus", "bocor", "packag"}},
	{"taste", []string{"enak", "great", "love", "mantap", "lezat", "nice", "asin", "pahit", "asam", "gurih", "awesome"}},
	{"service", []string{"service", "pelayan", "pramusaji", "ramah", "kasir", "barista", "staff"}},
	{"cleanliness", []string{"kotor", "kebersihan", "bersih", "clean"}},
	{"portion", []string{"portion", "porsi", "kecil", "besar", "cukup"}},
	{"ambience", []string{"ambience", "suasana", "ramai", "noisy", "berisik"}},
	{"delivery", []string{"delivery", "telat", "terlambat", "late", "driver"}},
	{"value", []string{"mahal", "murah", "value", "worth"}},
}

var replyTemplates = map[string][2]string{
	models.SentimentNegative: {
		"We're sorry for the experience. Please DM your order details - we want to make this right.",
		"Mohon maaf atas pengalaman Anda. Silakan DM detail pesanan - kami akan tindak lanjuti.",
	},
	models.SentimentPositive: {
		"Thank you for the great review! We're glad you enjoyed your visit and hope to see you again.",
		"Terima kasih atas ulasannya! Senang Anda menikmati kunjungannya, sampai jumpa lagi.",
	},
	models.SentimentNeutral: {
		"Thanks for the feedback - we'll share this with the team and keep improving.",
		"Terima kasih atas masukannya - kami akan terus perbaiki.",
	},
}

// Fallback is the deterministic, offline classification backend. It derives
// sentiment and topics from keyword lists, severity from sentiment, language
// from the presence of non-ASCII bytes, and replies from fixed bilingual
// templates. Text-derived sentiment always outranks the rating prior.
type Fallback struct{}

func NewFallback() *Fallback {
	return &Fallback{}
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) Classify(_ context.Context, _ models.BrandVoice, reviews []models.Review) ([]models.AnalysisCandidate, error) {
	out := make([]models.AnalysisCandidate, 0, len(reviews))
	for _, r := range reviews {
		sentiment := deriveSentiment(r)
		replies := replyTemplates[sentiment]
		out = append(out, models.AnalysisCandidate{
			ID:        r.ID,
			Language:  detectLanguage(r.Text),
			Sentiment: sentiment,
			Topics:    deriveTopics(r.Text),
			Severity:  deriveSeverity(sentiment),
			ReplyEN:   replies[0],
			ReplyID:   replies[1],
		})
	}
	return out, nil
}

func deriveSentiment(r models.Review) string {
	txt := strings.ToLower(r.Text)
	score := 0
	if containsAny(txt, positiveKeywords) {
		score++
	}
	if containsAny(txt, negativeKeywords) {
		score--
	}
	switch {
	case score <= -1:
		return models.SentimentNegative
	case score >= 1:
		return models.SentimentPositive
	}
	// No text signal: fall back to the rating prior.
	switch rating := r.RatingOr(3); {
	case rating >= 4:
		return models.SentimentPositive
	case rating <= 2:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func deriveTopics(text string) []string {
	txt := strings.ToLower(text)
	var topics []string
	for _, tk := range topicKeywords {
		if containsAny(txt, tk.keywords) {
			topics = append(topics, tk.topic)
		}
	}
	if len(topics) == 0 {
		topics = []string{models.DefaultTopic}
	}
	return topics
}

func deriveSeverity(sentiment string) int {
	switch sentiment {
	case models.SentimentPositive:
		return 1
	case models.SentimentNegative:
		return 5
	default:
		return 3
	}
}

// detectLanguage guesses "id" when the text carries any non-ASCII byte,
// "en" otherwise.
func detectLanguage(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] > 0x7f {
			return "id"
		}
	}
	return "en"
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Compile-time check that Fallback implements Classifier.
var _ models.Classifier = (*Fallback)(nil)
