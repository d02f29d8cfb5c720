// Package provenance logs a hashed provenance record for each event the audit workflow passes it.
package provenance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grace-platform/grace/pkg/ledger"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

type (
	Handler struct {
		Now func() time.Time
	}

	Response struct {
		StatusCode int    `json:"statusCode"`
		Body       string `json:"body"`
	}

	Result struct {
		Timestamp string `json:"timestamp"`
		Hash      string `json:"hash"`
	}
)

func NewHandler() *Handler {
	return &Handler{Now: time.Now}
}

func (h *Handler) Handle(ctx context.Context, event json.RawMessage) (Response, error) {
	log := logging.GetLogger(ctx)
	result, err := h.Log(ctx, event)
	if err != nil {
		log.Error("Could not log provenance", zap.Error(err))
		return response(500, map[string]any{
			"message": "Error logging provenance",
			"error":   err.Error(),
		}), nil
	}
	return response(200, map[string]any{
		"message": "Provenance logged successfully",
		"result":  result,
	}), nil
}

// Log hashes the event onto the genesis hash and writes the record to the function's log.
func (h *Handler) Log(ctx context.Context, event json.RawMessage) (Result, error) {
	var data any
	dec := json.NewDecoder(bytes.NewReader(event))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return Result{}, fmt.Errorf("could not parse event: %w", err)
	}
	hash, err := ledger.Hash(data, ledger.GenesisHash)
	if err != nil {
		return Result{}, err
	}
	timestamp := h.Now().UTC().Format(ledger.TimestampFormat)

	logging.GetLogger(ctx).Info("Provenance record",
		zap.String("timestamp", timestamp),
		zap.Any("event_data", data),
		zap.String("hash", hash),
		zap.String("previous_hash", ledger.GenesisHash),
	)
	return Result{Timestamp: timestamp, Hash: hash}, nil
}

func response(status int, body map[string]any) Response {
	data, _ := json.Marshal(body)
	return Response{StatusCode: status, Body: string(data)}
}
