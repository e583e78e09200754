package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

// cleanupStep is one statement of a cascading mutation. Steps run in order
// inside a single transaction; a failure anywhere rolls the whole set back.
type cleanupStep struct {
	name  string
	query string
	args  []interface{}
}

func runSteps(ctx context.Context, db core.DB, steps []cleanupStep) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	var exec core.DBTransactor = tx
	for _, step := range steps {
		if _, err = exec.ExecContext(ctx, exec.Rebind(step.query), step.args...); err != nil {
			_ = exec.Rollback()
			return errors.Wrap(err, step.name)
		}
	}
	return errors.Wrap(exec.Commit(), "committing transaction")
}
