package model

import (
	"errors"
	"math"
	"time"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	// JobFailed is part of the declared lifecycle but is never assigned:
	// per-record failures are recorded inside a completed job.
	JobFailed JobStatus = "failed"
)

// DelayRange bounds the randomized pause between two consecutive sends,
// in whole seconds, both ends inclusive.
type DelayRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (d DelayRange) Validate() error {
	if d.Min < 0 {
		return errors.New("delay range min must be >= 0")
	}
	if d.Max < d.Min {
		return errors.New("delay range max must be >= min")
	}
	return nil
}

// EstimateSeconds returns ceil(total * (min+max)/2), the advertised duration
// of a bulk job with the given record count.
func (d DelayRange) EstimateSeconds(total int) int {
	return (total*(d.Min+d.Max) + 1) / 2
}

type Result struct {
	Number              string    `json:"number"`
	Success             bool      `json:"success"`
	MessageID           string    `json:"messageId,omitempty"`
	Error               string    `json:"error,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
	PersonalizedMessage string    `json:"personalizedMessage"`
}

type Job struct {
	ID                  string     `json:"jobId"`
	Status              JobStatus  `json:"status"`
	Total               int        `json:"total"`
	Sent                int        `json:"sent"`
	Failed              int        `json:"failed"`
	Percentage          int        `json:"percentage"`
	Results             []Result   `json:"results"`
	Delay               DelayRange `json:"delayRange"`
	StartedAt           time.Time  `json:"startedAt"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	EstimatedCompletion time.Time  `json:"estimatedCompletion"`
}

// Progress returns the percentage for done records out of total, rounded to
// the nearest integer.
func Progress(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}
