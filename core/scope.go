package core

import (
	"context"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/stephnangue/fedgate/logger"
	"github.com/stephnangue/fedgate/logical"
)

// selectScope binds an unscoped identity to a project. The default project
// is tried first; on rejection the candidate list is walked in order and the
// first project that accepts the scope wins. Per-project rejections are
// expected (disabled project, revoked assignment) and are skipped. Only
// when every candidate fails does the walk surface an error.
//
// Candidates are attempted serially: backends commonly rate-limit or
// serialize scoping calls per subject. An unreachable backend aborts the
// walk immediately; continuing would just time out once per candidate.
func (c *Core) selectScope(ctx context.Context, identity *logical.UnscopedIdentity) (*logical.ScopedToken, error) {
	var rejections *multierror.Error

	if identity.DefaultProjectID != "" {
		token, err := c.backend.ScopeToProject(ctx, identity, identity.DefaultProjectID)
		if err == nil {
			return token, nil
		}
		if failure, ok := logical.AsFailure(err); ok && failure.Kind == logical.BackendUnavailable {
			return nil, err
		}
		c.logger.Debug("default project rejected scope, trying candidates",
			logger.String("project_id", identity.DefaultProjectID))
		rejections = multierror.Append(rejections, err)
	}

	for _, projectID := range identity.CandidateProjectIDs {
		if projectID == identity.DefaultProjectID {
			// Already rejected above.
			continue
		}
		token, err := c.backend.ScopeToProject(ctx, identity, projectID)
		if err == nil {
			return token, nil
		}
		if failure, ok := logical.AsFailure(err); ok && failure.Kind == logical.BackendUnavailable {
			return nil, err
		}
		rejections = multierror.Append(rejections, err)
	}

	return nil, logical.ErrNoScopableProject(
		"no project accepted the scoping exchange", rejections.ErrorOrNil())
}
