package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

/* ---------------------------------------------------------------------
   Phase authorization collaborator
   ---------------------------------------------------------------------
   Role and permission management lives in a separate service. This client
   asks it a single question: may this actor manage (complete, reassign)
   that phase. We keep it dumb on purpose: build the request, decode the
   boolean, nothing more.
   ------------------------------------------------------------------ */

type PhaseAuthorizer interface {
	CanManagePhase(ctx context.Context, phaseID uint, actorID string) (bool, error)
}

type httpPhaseAuthorizer struct {
	baseURL string       // e.g. "http://identity:8080/api/internal"
	http    *http.Client // injected so we can swap in mocks/timeouts later
}

// NewPhaseAuthorizerHTTPClient is the public constructor used at boot time.
func NewPhaseAuthorizerHTTPClient(baseURL string) PhaseAuthorizer {
	return &httpPhaseAuthorizer{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

/* ---------------------------------------------------------------------
   CanManagePhase – GET /phases/:id/managers/:actorId
   ------------------------------------------------------------------ */

func (c *httpPhaseAuthorizer) CanManagePhase(
	ctx context.Context,
	phaseID uint,
	actorID string,
) (bool, error) {
	url := fmt.Sprintf("%s/phases/%d/managers/%s", c.baseURL, phaseID, actorID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build authz request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("phase-authz call failed: %w", err)
	}
	defer resp.Body.Close()

	// The identity service answers with plain status codes: 204 when the
	// actor holds the capability, 403 when it does not.
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return true, nil
	case http.StatusForbidden, http.StatusNotFound:
		return false, nil
	default:
		raw, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("phase-authz returned %s – body: %s", resp.Status, raw)
	}
}
