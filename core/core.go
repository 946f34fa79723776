package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	metrics "github.com/hashicorp/go-metrics"
	"github.com/stephnangue/fedgate/config"
	"github.com/stephnangue/fedgate/directory"
	"github.com/stephnangue/fedgate/keystone"
	"github.com/stephnangue/fedgate/logger"
	"github.com/stephnangue/fedgate/logical"
)

// Core orchestrates one login attempt end to end: resolve the identity
// domain, route to the direct or federated authenticator, then scope the
// resulting identity to a project.
//
// Core holds no mutable per-attempt state; concurrent login attempts are
// independent. The identity backend and the realm directory are the only
// external collaborators.
type Core struct {
	keystoneConfig *config.KeystoneBlock
	backend        keystone.Client
	directory      *directory.Directory
	logger         logger.Logger
}

// CoreConfig holds the dependencies of a Core.
type CoreConfig struct {
	KeystoneConfig *config.KeystoneBlock
	Backend        keystone.Client
	Directory      *directory.Directory
	Logger         logger.Logger
}

// NewCore creates a Core.
func NewCore(conf *CoreConfig) *Core {
	log := conf.Logger
	if log == nil {
		log = logger.NewZerologLogger(nil)
	}
	return &Core{
		keystoneConfig: conf.KeystoneConfig,
		backend:        conf.Backend,
		directory:      conf.Directory,
		logger:         log.WithSubsystem("core"),
	}
}

// HandleLogin processes one login attempt. On success the result carries the
// scoped token. On failure the returned error is a *logical.AuthFailure; the
// caller decides session handling via FlushSessionOnFailure.
func (c *Core) HandleLogin(ctx context.Context, req *logical.LoginRequest) (*logical.LoginResult, error) {
	attemptID := uuid.New().String()
	start := time.Now()

	log := c.logger.WithFields(
		logger.String("attempt_id", attemptID),
		logger.String("service", req.ServiceSelector),
	)

	// Multidomain deployments cannot fall back to the default domain: the
	// same username may exist in several domains, so a domain-less login is
	// ambiguous and must be rejected before any backend call.
	if c.keystoneConfig.MultidomainSupport && !req.IsFederated() && req.Domain == "" {
		err := logical.ErrInvalidCredentials("identity domain is required")
		c.countFailure(err)
		log.Warn("login rejected: missing identity domain",
			logger.String("username", req.Username))
		return nil, err
	}

	domain, err := ResolveDomain(req.Domain, c.keystoneConfig.ResolvedDefaultDomain())
	if err != nil {
		c.countFailure(err)
		log.Error("login failed: no identity domain available", logger.Err(err))
		return nil, err
	}

	identity, err := c.authenticate(ctx, req, domain)
	if err != nil {
		c.countFailure(err)
		log.Warn("login failed",
			logger.String("username", req.Username),
			logger.String("kind", string(logical.KindOf(err))))
		return nil, err
	}

	token, err := c.selectScope(ctx, identity)
	if err != nil {
		c.countFailure(err)
		log.Warn("login failed during scoping",
			logger.String("subject_id", identity.SubjectID),
			logger.String("kind", string(logical.KindOf(err))))
		return nil, err
	}

	metrics.IncrCounter([]string{"fedgate", "login", "success"}, 1)
	log.Info("login successful",
		logger.String("username", req.Username),
		logger.String("subject_id", token.SubjectID),
		logger.String("project_id", token.ProjectID),
		logger.Duration("took", time.Since(start)))

	return &logical.LoginResult{Token: token}, nil
}

// FlushSessionOnFailure reports whether the session-owning collaborator must
// flush session state for a failed attempt. Direct-credential rejections
// always flush; federated failures flush only when configured to.
func (c *Core) FlushSessionOnFailure(req *logical.LoginRequest, err error) bool {
	failure, ok := logical.AsFailure(err)
	if !ok {
		return false
	}
	if req.IsFederated() {
		return c.keystoneConfig.FlushSessionOnFederatedFailure
	}
	return failure.Kind == logical.InvalidCredentials
}

// MultidomainSupport reports whether the UI layer must render a domain field.
func (c *Core) MultidomainSupport() bool {
	return c.keystoneConfig.MultidomainSupport
}

func (c *Core) countFailure(err error) {
	metrics.IncrCounter([]string{"fedgate", "login", "failure", string(logical.KindOf(err))}, 1)
}
