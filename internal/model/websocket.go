package model

// Job event types pushed to subscribers of /ws/jobs/:jobId. Clients may send
// ping and get pong back; everything else flows server to client.
const (
	JobEventStep    = "progress"
	JobEventResult  = "complete"
	JobEventFailure = "error"
	JobEventPing    = "ping"
	JobEventPong    = "pong"
)

// JobEvent is the envelope shared by every frame. Clients switch on Type.
type JobEvent struct {
	Type  string `json:"type"`
	JobID string `json:"jobId,omitempty"`
}

// StepEvent is sent each time the orchestrator enters a pipeline step.
// Step is the orchestrator step name, e.g. generating-images.
type StepEvent struct {
	JobEvent
	Progress int       `json:"progress"`
	Status   JobStatus `json:"status"`
	Step     string    `json:"currentStep,omitempty"`
}

// ResultEvent carries the finished pipeline output, the same body the
// synchronous pipeline endpoints return.
type ResultEvent struct {
	JobEvent
	Result *PipelineResponse `json:"result"`
}

// FailureEvent uses the error envelope codes of the HTTP API.
type FailureEvent struct {
	JobEvent
	Error JobFailure `json:"error"`
}

type JobFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
