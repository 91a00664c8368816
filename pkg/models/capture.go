package models

import "time"

// CaptureRequest is what gets sent to the capture operation. Built once per submit.
type CaptureRequest struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CaptureReply is the capture operation's answer for a successful capture
type CaptureReply struct {
	ImageURL string `json:"image_url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// CaptureResult is the artifact surfaced to the user after a successful capture
type CaptureResult struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"image_url"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SourceURL string    `json:"source_url"`
	CreatedAt time.Time `json:"created_at"`
}
