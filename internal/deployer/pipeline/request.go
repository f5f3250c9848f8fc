package pipeline

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/anshumantekriwal/kadena-agents/pkg/models"
)

var (
	// ErrInvalidRequest is returned before any external call when a request is
	// incomplete or names an agent that cannot be mapped onto cloud resources.
	ErrInvalidRequest = errors.New("invalid deployment request")

	// ErrAlreadyDeployed is returned when the agent already has a managed service.
	ErrAlreadyDeployed = errors.New("agent is already deployed")
)

// Repository and service names share one lowercase alphabet.
var agentIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:[_-][a-z0-9]+)*$`)

// Request is one deployment of one agent. Keys travel with the request and
// are never written to the process environment.
type Request struct {
	AgentID          string
	BaselineFunction string
	IntervalFunction string
	PublicKey        string
	PrivateKey       string
}

// RequestFromModel converts the API body into a pipeline request.
func RequestFromModel(in models.DeployAgentRequest) Request {
	return Request(in)
}

// Validate reports the first missing field, then checks the agent id alphabet.
func (r Request) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"agentId", r.AgentID},
		{"baselineFunction", r.BaselineFunction},
		{"intervalFunction", r.IntervalFunction},
		{"publicKey", r.PublicKey},
		{"privateKey", r.PrivateKey},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidRequest, f.name)
		}
	}
	if !agentIDPattern.MatchString(r.AgentID) {
		return fmt.Errorf("%w: agentId %q must be lowercase letters and digits separated by single '-' or '_'", ErrInvalidRequest, r.AgentID)
	}
	return nil
}
