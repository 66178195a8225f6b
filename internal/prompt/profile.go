package prompt

// Profile centralizes the generation parameters of a translation run.
type Profile struct {
	Temperature       float64
	TopP              float64
	RepeatPenalty     float64
	NumPredict        int
	ContextWindowSize int
	BatchSize         int
	MaxTokensBudget   int

	// Ollama performance knobs
	NumCtx    int
	NumThread int

	// Feature flags
	EnableContextual   bool
	EnableFewshot      bool
	EnableBatch        bool
	EnableAutoGlossary bool
}

func DefaultProfile() Profile {
	return Profile{
		Temperature:        0.3,
		TopP:               0.85,
		RepeatPenalty:      1.15,
		NumPredict:         80,
		ContextWindowSize:  5,
		BatchSize:          1,
		MaxTokensBudget:    2048,
		NumCtx:             2048,
		NumThread:          0,
		EnableContextual:   true,
		EnableFewshot:      true,
		EnableBatch:        false,
		EnableAutoGlossary: true,
	}
}

func (p Profile) perfOptions(opts map[string]any) {
	opts["num_ctx"] = p.NumCtx
	opts["num_batch"] = 512
	if p.NumThread > 0 {
		opts["num_thread"] = p.NumThread
	}
}

// OllamaOptions builds the options payload for a single-line request.
// The prediction cap scales with the input so long lines are not cut
// short.
func (p Profile) OllamaOptions(textLength int) map[string]any {
	predict := p.NumPredict
	if textLength > 0 {
		scaled := textLength * 3
		if scaled > p.MaxTokensBudget {
			scaled = p.MaxTokensBudget
		}
		if scaled > predict {
			predict = scaled
		}
	}
	opts := map[string]any{
		"temperature":    p.Temperature,
		"top_p":          p.TopP,
		"repeat_penalty": p.RepeatPenalty,
		"num_predict":    predict,
	}
	p.perfOptions(opts)
	return opts
}

// BatchOllamaOptions builds the options payload for a numbered batch.
func (p Profile) BatchOllamaOptions(batchTextLength int) map[string]any {
	predict := batchTextLength * 3
	if predict < 200 {
		predict = 200
	}
	if predict > p.MaxTokensBudget {
		predict = p.MaxTokensBudget
	}
	opts := map[string]any{
		"temperature":    p.Temperature,
		"top_p":          p.TopP,
		"repeat_penalty": p.RepeatPenalty,
		"num_predict":    predict,
	}
	p.perfOptions(opts)
	return opts
}
