package queue

import "github.com/priyamehta/docintel/internal/models"

const TypeAnalysisRun = "analysis:run"

// AnalysisRunPayload references the persisted job by id. RuntimeInput, when
// set, overrides the stored input for this delivery only; the job row is
// not mutated.
type AnalysisRunPayload struct {
	DBJobID      string           `json:"dbJobId"`
	RuntimeInput *models.JobInput `json:"runtimeInput,omitempty"`
	TimeoutMs    int              `json:"timeoutMs,omitempty"`
}
