package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

type scriptedCapturer struct {
	reply models.CaptureReply
	err   error
	calls int
}

func (s *scriptedCapturer) Capture(context.Context, models.CaptureRequest) (models.CaptureReply, error) {
	s.calls++
	return s.reply, s.err
}

func validJob() *models.CaptureJob {
	return &models.CaptureJob{
		Type:    models.CaptureJobType,
		ID:      "job-1",
		Request: models.CaptureRequest{URL: "https://example.com", Width: 1440, Height: 900},
	}
}

func TestEventHandler_Handle(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := &scriptedCapturer{reply: models.CaptureReply{ImageURL: "https://cdn.example.com/a.png", Width: 1440, Height: 900}}
		h := NewEventHandler(c, zap.NewNop())

		resp, err := h.Handle(context.Background(), validJob())
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if resp.Type != models.CaptureResponseType || resp.ID != "job-1" || resp.Reply == nil || resp.Error != "" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		c := &scriptedCapturer{err: errors.New("browser crashed")}
		h := NewEventHandler(c, zap.NewNop())

		resp, err := h.Handle(context.Background(), validJob())
		if err == nil {
			t.Fatal("expected error")
		}
		if resp == nil || resp.Reply != nil || resp.Error != "browser crashed" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("empty image URL", func(t *testing.T) {
		h := NewEventHandler(&scriptedCapturer{}, zap.NewNop())
		if _, err := h.Handle(context.Background(), validJob()); err == nil {
			t.Error("expected error for empty image URL")
		}
	})
}

func TestEventHandler_RejectsInvalidJobs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CaptureJob)
	}{
		{"wrong type", func(j *models.CaptureJob) { j.Type = "render_request" }},
		{"missing id", func(j *models.CaptureJob) { j.ID = "" }},
		{"bad url", func(j *models.CaptureJob) { j.Request.URL = "not a url" }},
		{"too narrow", func(j *models.CaptureJob) { j.Request.Width = 99 }},
		{"too tall", func(j *models.CaptureJob) { j.Request.Height = 3841 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &scriptedCapturer{reply: models.CaptureReply{ImageURL: "https://cdn.example.com/a.png"}}
			h := NewEventHandler(c, zap.NewNop())

			job := validJob()
			tt.mutate(job)
			resp, err := h.Handle(context.Background(), job)
			if err == nil {
				t.Fatal("expected error")
			}
			if resp == nil || resp.Error == "" {
				t.Errorf("response = %+v", resp)
			}
			if c.calls != 0 {
				t.Error("capturer must not run for invalid jobs")
			}
		})
	}
}
