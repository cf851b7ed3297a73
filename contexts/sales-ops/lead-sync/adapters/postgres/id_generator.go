package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator issues the run_id attached to every reconciliation run.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
