package llm

// ClassifierModelConfig drives the classification model. Temperature
// defaults to 0 so category verdicts stay deterministic.
type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"1000"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0"`
}

// ResponderModelConfig drives the answer-producing model used by the
// conversational handlers.
type ResponderModelConfig struct {
	Model       string  `envconfig:"RESPONDER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONDER_MAX_TOKENS" default:"4000"`
	Temperature float32 `envconfig:"RESPONDER_TEMPERATURE" default:"0.4"`
}

// Config holds everything needed to construct both chat models.
type Config struct {
	APIKey  string
	BaseURL string

	Classifier ClassifierModelConfig
	Responder  ResponderModelConfig
}
