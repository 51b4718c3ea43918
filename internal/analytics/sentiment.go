package analytics

// Sentiment classification buckets.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// ClassifySentiment maps a score in [-1, 1] to a three-bucket label.
// Scores of exactly ±0.3 fall to neutral.
func ClassifySentiment(score float64) string {
	switch {
	case score > 0.3:
		return SentimentPositive
	case score < -0.3:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
