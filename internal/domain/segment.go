package domain

// TranscriptSegment is one time-aligned span of transcribed text.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Candidate is one raw exercise segment returned by the Multimodal Analyzer
// (or the keyword fallback) before normalization.
type Candidate struct {
	Name        string  `json:"name"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	HowTo       string  `json:"how_to,omitempty"`
	Benefits    string  `json:"benefits,omitempty"`
	Counteracts string  `json:"counteracts,omitempty"`
	FitnessLevel int    `json:"fitness_level,omitempty"`
	Intensity    int    `json:"intensity,omitempty"`
	RoundsReps   string `json:"rounds_reps,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Duration returns End - Start.
func (c Candidate) Duration() float64 { return c.End - c.Start }

// Keyframe is one kept frame from the Keyframe Extractor.
type Keyframe struct {
	Path              string
	CutIndex          int
	OriginalFrameNum  int
	TimestampMS       int64
	DiffScore         float64
}

// AnalyzerContext is the contextual hint bundle passed to the Analyzer.
type AnalyzerContext struct {
	Platform       string
	CarouselIndex  int
	CarouselCount  int
	CarouselIsHook bool
	VideoDuration  float64

	// ShotBoundaries and Labels are optional hints from the GCP Video
	// Intelligence backend (AI_PROVIDER=gcp); nil/empty when unused.
	ShotBoundaries []float64
	Labels         []string
}
