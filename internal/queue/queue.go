package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Queue names used by the pipeline.
const (
	AudioEventQueue   = "audio_events"
	SummaryBuildQueue = "summary_builds"
)

// AudioEventMessage is the storage object-created notification carried from
// the upload path (or the storage callback endpoint) to the transcription
// worker. Delivery is at-least-once; the worker must tolerate replays.
type AudioEventMessage struct {
	Bucket      string            `json:"bucket,omitempty"`
	Path        string            `json:"path"`
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// BuildMessage asks the summary worker to (re)build one session's summary.
type BuildMessage struct {
	SessionID string `json:"session_id"`
	OwnerID   string `json:"owner_id,omitempty"`
}

// Queue is a Redis-list-backed FIFO of JSON payloads.
type Queue struct {
	client    *redis.Client
	queueName string
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

func (q *Queue) push(ctx context.Context, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

func (q *Queue) pop(ctx context.Context, timeout time.Duration, msg interface{}) (bool, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil // timeout, no message
		}
		return false, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return false, nil
	}

	if err := json.Unmarshal([]byte(result[1]), msg); err != nil {
		return false, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return true, nil
}

// Length returns the number of pending messages.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}

// AudioEvents is the queue feeding the transcription worker.
type AudioEvents struct {
	*Queue
}

func NewAudioEvents(client *redis.Client) *AudioEvents {
	return &AudioEvents{Queue: NewQueue(client, AudioEventQueue)}
}

func (q *AudioEvents) Push(ctx context.Context, msg *AudioEventMessage) error {
	return q.push(ctx, msg)
}

func (q *AudioEvents) Pop(ctx context.Context, timeout time.Duration) (*AudioEventMessage, error) {
	var msg AudioEventMessage
	ok, err := q.pop(ctx, timeout, &msg)
	if err != nil || !ok {
		return nil, err
	}
	return &msg, nil
}

// SummaryBuilds is the queue feeding the summary builder.
type SummaryBuilds struct {
	*Queue
}

func NewSummaryBuilds(client *redis.Client) *SummaryBuilds {
	return &SummaryBuilds{Queue: NewQueue(client, SummaryBuildQueue)}
}

func (q *SummaryBuilds) Push(ctx context.Context, msg *BuildMessage) error {
	return q.push(ctx, msg)
}

func (q *SummaryBuilds) Pop(ctx context.Context, timeout time.Duration) (*BuildMessage, error) {
	var msg BuildMessage
	ok, err := q.pop(ctx, timeout, &msg)
	if err != nil || !ok {
		return nil, err
	}
	return &msg, nil
}
