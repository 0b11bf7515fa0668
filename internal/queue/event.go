// Package queue defines message payloads exchanged over the message broker.
package queue

// ImageGeneratedEvent is published after a generation is persisted. It
// carries enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type ImageGeneratedEvent struct {
    ImageID        uint64 `json:"image_id"`
    UserID         uint64 `json:"user_id"`
    UserEmail      string `json:"user_email"`
    Prompt         string `json:"prompt"`
    GenerationMode string `json:"generation_mode"`
    ImageURL       string `json:"image_url"`
    FileSize       int64  `json:"file_size"`
    QuotaRemaining int    `json:"quota_remaining"`
    GeneratedAt    string `json:"generated_at"`
}
