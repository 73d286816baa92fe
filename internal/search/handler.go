package search

import (
	"context"
	"encoding/json"

	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/worker"
)

// WorkerHandler returns the handler that serves WorkerOp on a background
// worker. It returns every match; the dispatcher applies the result cap.
func WorkerHandler() worker.Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req workerRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, shoperrors.New(shoperrors.ErrCodeChannelProtocol, "invalid search request", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results := Filter(req.Products, Terms(req.Query), nil)
		return json.Marshal(workerReply{Results: results})
	}
}

// Handlers returns the handler set for a search worker.
func Handlers() map[string]worker.Handler {
	return map[string]worker.Handler{WorkerOp: WorkerHandler()}
}
