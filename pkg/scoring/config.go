package scoring

// Config holds the benchmark tables used to normalize offers
type Config struct {
	// QualityRatings is the fixed rating per supplier slot on a 5-point scale
	QualityRatings map[int]float64 `yaml:"quality_ratings"`
	// QualityWorst scores 0 and QualityBest scores 100
	QualityWorst float64 `yaml:"quality_worst"`
	QualityBest  float64 `yaml:"quality_best"`
	// LeadTimeBestDays scores 100 and LeadTimeWorstDays scores 0
	LeadTimeBestDays  float64 `yaml:"lead_time_best_days"`
	LeadTimeWorstDays float64 `yaml:"lead_time_worst_days"`
	// PaymentTermScores are exact scores for known term strings
	PaymentTermScores map[string]float64 `yaml:"payment_term_scores"`
	// UnparseableTermsScore applies when terms are unknown and have no leading percentage
	UnparseableTermsScore float64 `yaml:"unparseable_terms_score"`
}

// DefaultConfig returns the standard benchmark tables
func DefaultConfig() Config {
	return Config{
		QualityRatings: map[int]float64{
			1: 4.5,
			2: 4.0,
			3: 4.8,
			4: 3.5,
		},
		QualityWorst:      3.0,
		QualityBest:       5.0,
		LeadTimeBestDays:  14,
		LeadTimeWorstDays: 60,
		PaymentTermScores: map[string]float64{
			"33/33/33": 100,
			"30/70":    60,
			"100":      0,
		},
		UnparseableTermsScore: 50,
	}
}
