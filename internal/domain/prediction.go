package domain

type PredictionResult struct {
	Grade        string         `json:"grade"`
	Color        string         `json:"color"`
	Explanation  string         `json:"explanation"`
	Quality      string         `json:"quality,omitempty"`
	ClassID      int            `json:"class_id"`
	ModelVersion string         `json:"model_version,omitempty"`
	Input        NutrientVector `json:"input"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type BatchItemResult struct {
	Index   int               `json:"index"`
	Result  *PredictionResult `json:"result,omitempty"`
	Status  string            `json:"status"`
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
}

type BatchSummary struct {
	SuccessCount     int   `json:"success_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type BatchResult struct {
	Results []BatchItemResult `json:"results"`
	Summary BatchSummary      `json:"summary"`
}

// ModelStatus describes the state of the process-wide classifier.
type ModelStatus struct {
	Source   string `json:"source"`
	Loaded   bool   `json:"loaded"`
	Version  string `json:"version,omitempty"`
	LoadedAt string `json:"loaded_at,omitempty"`
	Error    string `json:"error,omitempty"`
}
