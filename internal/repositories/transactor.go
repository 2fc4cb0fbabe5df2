package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNotFound is returned by every repository when the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// UndoLog collects compensating steps for a unit of work that runs without
// a database transaction.
type UndoLog interface {
	Defer(step func(ctx context.Context) error)
}

// Transactor runs a multi-document unit of work. Repository calls inside fn
// must use the ctx passed to fn so they join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, undo UndoLog) error) error
}

// MongoTransactor runs units of work in a MongoDB multi-document transaction.
// Transactions need a replica set; with transactional=false it falls back to
// RunCompensated.
type MongoTransactor struct {
	client        *mongo.Client
	transactional bool
	logger        *zap.Logger
}

// NewMongoTransactor creates a new MongoTransactor
func NewMongoTransactor(client *mongo.Client, transactional bool, logger *zap.Logger) *MongoTransactor {
	return &MongoTransactor{client: client, transactional: transactional, logger: logger}
}

func (t *MongoTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, undo UndoLog) error) error {
	if !t.transactional {
		return RunCompensated(ctx, t.logger, fn)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	// fn may run more than once when the driver retries a transient
	// transaction error.
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx, noopUndo{})
	})
	return err
}

// RunCompensated runs fn directly. If fn fails, the steps it registered are
// run newest first; failures of those steps are logged and do not replace
// the original error.
func RunCompensated(ctx context.Context, logger *zap.Logger, fn func(ctx context.Context, undo UndoLog) error) error {
	log := &undoSteps{}
	err := fn(ctx, log)
	if err == nil {
		return nil
	}

	for i := len(log.steps) - 1; i >= 0; i-- {
		if undoErr := log.steps[i](ctx); undoErr != nil {
			logger.Error("compensation step failed",
				zap.Int("step", i),
				zap.NamedError("cause", err),
				zap.Error(undoErr),
			)
		}
	}
	return err
}

type undoSteps struct {
	steps []func(ctx context.Context) error
}

func (u *undoSteps) Defer(step func(ctx context.Context) error) {
	u.steps = append(u.steps, step)
}

type noopUndo struct{}

func (noopUndo) Defer(func(ctx context.Context) error) {}
