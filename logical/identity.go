package logical

import "time"

// Realm is a federated identity-provider trust relationship offered as a
// login option. Realms are produced by the realm directory and are immutable;
// they are refreshed per directory query, never cached by the core.
type Realm struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}

// UnscopedIdentity is the result of a successful credential or federated
// exchange: an authenticated identity not yet bound to a project. It is
// created by the authenticators and consumed by the scope selector within a
// single login attempt.
type UnscopedIdentity struct {
	// SubjectID identifies the authenticated principal.
	SubjectID string `json:"subject_id"`

	// DomainID is the identity domain the subject authenticated against.
	DomainID string `json:"domain_id"`

	// UnscopedToken is the opaque token backing this identity, required
	// for the subsequent scoping exchange.
	UnscopedToken string `json:"-"`

	// DefaultProjectID is the subject's preferred project, when one is set.
	DefaultProjectID string `json:"default_project_id,omitempty"`

	// CandidateProjectIDs are the projects the subject may scope to, in
	// backend order. May be empty.
	CandidateProjectIDs []string `json:"candidate_project_ids,omitempty"`
}

// ScopedToken is the terminal artifact of a successful login: a token bound
// to exactly one project. Its lifetime belongs to the caller's session layer.
type ScopedToken struct {
	// TokenValue is opaque to this service.
	TokenValue string `json:"token_value"`

	ProjectID string    `json:"project_id"`
	SubjectID string    `json:"subject_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Choice is a (value, label) pair handed to the form/UI layer for the region
// and auth-service selection lists.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
