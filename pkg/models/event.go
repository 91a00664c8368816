package models

import "time"

// CaptureJob is the queue envelope carrying a capture request to a worker
type CaptureJob struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	ReplyTo   string         `json:"reply_to,omitempty"`
	Request   CaptureRequest `json:"request"`
	CreatedAt time.Time      `json:"created_at"`
}

// CaptureResponse is the worker's reply to a CaptureJob. Error is set instead of Reply on failure.
type CaptureResponse struct {
	Type        string        `json:"type"`
	ID          string        `json:"id"`
	Reply       *CaptureReply `json:"reply,omitempty"`
	Error       string        `json:"error,omitempty"`
	ProcessedAt time.Time     `json:"processed_at"`
}

const (
	CaptureJobType      = "capture_request"
	CaptureResponseType = "capture_result"
)

// SucceededResponse builds the response for a job that produced reply
func SucceededResponse(jobID string, reply CaptureReply) *CaptureResponse {
	return &CaptureResponse{
		Type:        CaptureResponseType,
		ID:          jobID,
		Reply:       &reply,
		ProcessedAt: time.Now(),
	}
}

// FailedResponse builds the response for a job that failed with err
func FailedResponse(jobID string, err error) *CaptureResponse {
	msg := "capture failed"
	if err != nil {
		msg = err.Error()
	}
	return &CaptureResponse{
		Type:        CaptureResponseType,
		ID:          jobID,
		Error:       msg,
		ProcessedAt: time.Now(),
	}
}
