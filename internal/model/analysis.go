package model

// SentimentNA is the placeholder sentiment label used when the AI response
// cannot be decoded into the expected structure.
const SentimentNA = "N/A"

// CompetitorMention records a competitor referenced in a review and how the
// reviewer compared it to the target product.
type CompetitorMention struct {
	Competitor string `json:"competitor"`
	Summary    string `json:"comparison_summary"`
}

// VideoAnalysis is the structured breakdown extracted from one transcript.
type VideoAnalysis struct {
	VideoURL             string              `json:"video_url"`
	Sentiment            string              `json:"sentiment"`
	SentimentScore       int                 `json:"sentiment_score"`
	Strengths            []string            `json:"strengths"`
	Weaknesses           []string            `json:"weaknesses"`
	BrandSentiment       string              `json:"brand_sentiment"`
	CompetitorMentions   []CompetitorMention `json:"competitor_mentions"`
	Trends               []string            `json:"trends"`
	CompetitorPerception string              `json:"competitor_perception"`
	FinalVerdict         string              `json:"final_verdict"`
	Raw                  string              `json:"-"`
}

// PlaceholderVideoAnalysis builds the neutral record substituted when the AI
// output fails to decode. The raw response is retained for diagnostics.
func PlaceholderVideoAnalysis(videoURL, raw string) VideoAnalysis {
	return VideoAnalysis{
		VideoURL:             videoURL,
		Sentiment:            SentimentNA,
		SentimentScore:       50,
		Strengths:            []string{},
		Weaknesses:           []string{},
		BrandSentiment:       SentimentNA,
		CompetitorMentions:   []CompetitorMention{},
		Trends:               []string{},
		CompetitorPerception: SentimentNA,
		FinalVerdict:         SentimentNA,
		Raw:                  raw,
	}
}

// Persona is a viewer profile derived from comment analysis.
type Persona struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	AgeGroup           string   `json:"age_group"`
	Interests          []string `json:"interests"`
	Motivations        []string `json:"motivations"`
	PainPoints         []string `json:"pain_points"`
	ContentPreferences []string `json:"content_preferences"`
}

// CommentAnalysis is the thematic/persona breakdown for one video's comments.
type CommentAnalysis struct {
	VideoURL           string             `json:"video_url"`
	Themes             []string           `json:"themes"`
	SentimentBreakdown map[string]float64 `json:"sentiment_breakdown"`
	RecurringTopics    []string           `json:"recurring_topics"`
	Keywords           []string           `json:"keywords"`
	Personas           []Persona          `json:"personas"`
	Raw                string             `json:"-"`
}

// PlaceholderCommentAnalysis builds the neutral record substituted when the
// AI output fails to decode.
func PlaceholderCommentAnalysis(videoURL, raw string) CommentAnalysis {
	return CommentAnalysis{
		VideoURL:           videoURL,
		Themes:             []string{},
		SentimentBreakdown: map[string]float64{},
		RecurringTopics:    []string{},
		Keywords:           []string{},
		Personas:           []Persona{},
		Raw:                raw,
	}
}

// AnalysisResult is the persisted per-video summary row owned by a job.
// Strength and weakness lists are flattened for display.
type AnalysisResult struct {
	ID          int64  `json:"id"`
	JobID       string `json:"job_id"`
	VideoID     string `json:"video_id"`
	VideoTitle  string `json:"video_title"`
	ChannelName string `json:"channel_name"`
	Sentiment   string `json:"sentiment"`
	Strengths   string `json:"strengths"`
	Weaknesses  string `json:"weaknesses"`
	Summary     string `json:"summary"`
}

// TranscriptionOutcome is the transient per-item result of transcript
// acquisition. It is never persisted.
type TranscriptionOutcome struct {
	VideoURL   string
	VideoID    string
	Transcript string
	OK         bool
	Err        string
}
