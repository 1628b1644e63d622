package model

import "time"

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Delivery is one archived per-recipient outcome, written to the optional
// history store after the dispatch loop records the result.
type Delivery struct {
	ID              int64          `json:"id"`
	JobID           string         `json:"jobId"`
	Seq             int            `json:"seq"`
	RecipientPhone  string         `json:"number"`
	Content         string         `json:"content"`
	Status          DeliveryStatus `json:"status"`
	RemoteMessageID *string        `json:"messageId,omitempty"`
	LastError       *string        `json:"error,omitempty"`
	SentAt          time.Time      `json:"sentAt"`
}

// NewDelivery maps a job result at position seq to its archive row.
func NewDelivery(jobID string, seq int, res Result) Delivery {
	d := Delivery{
		JobID:          jobID,
		Seq:            seq,
		RecipientPhone: res.Number,
		Content:        res.PersonalizedMessage,
		Status:         DeliverySent,
		SentAt:         res.Timestamp,
	}
	if res.MessageID != "" {
		id := res.MessageID
		d.RemoteMessageID = &id
	}
	if !res.Success {
		d.Status = DeliveryFailed
		if res.Error != "" {
			errMsg := res.Error
			d.LastError = &errMsg
		}
	}
	return d
}
