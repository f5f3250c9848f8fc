package models

import "time"

// DeployAgentRequest is the body accepted by the deploy endpoint.
type DeployAgentRequest struct {
	AgentID          string `json:"agentId" minLength:"1" doc:"Agent identifier, used to name the image repository and managed service" example:"abc123"`
	BaselineFunction string `json:"baselineFunction" minLength:"1" doc:"Program text for the routine run once per invocation cycle"`
	IntervalFunction string `json:"intervalFunction" minLength:"1" doc:"Program text for the routine run on a recurring schedule"`
	PublicKey        string `json:"publicKey" minLength:"1" doc:"Agent public key, injected into the runtime as PUBLIC_KEY"`
	PrivateKey       string `json:"privateKey" minLength:"1" doc:"Agent private key, injected into the runtime as PRIVATE_KEY"`
}

// DeploymentResult describes an agent whose managed service creation was accepted.
// Accepted does not mean ready: the provider may still be starting the service.
type DeploymentResult struct {
	DeploymentID string `json:"deploymentId"`
	AgentID      string `json:"agentId"`
	AgentURL     string `json:"agentUrl"`
	ServiceARN   string `json:"serviceArn"`
	ImageURI     string `json:"imageUri"`
}

// DeploymentStatus is the tracked state of a single pipeline run.
type DeploymentStatus struct {
	ID        string            `json:"id"`
	AgentID   string            `json:"agentId"`
	Status    string            `json:"status"`
	Step      string            `json:"step,omitempty"`
	Completed []string          `json:"completedSteps"`
	Total     int               `json:"totalSteps"`
	Result    *DeploymentResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Agent is a deployed agent as reported by the managed-service inventory.
type Agent struct {
	AgentID      string     `json:"agentId"`
	ServiceName  string     `json:"serviceName"`
	ServiceURL   string     `json:"serviceUrl"`
	ServiceARN   string     `json:"serviceArn,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	HasLogs      bool       `json:"hasLogs"`
	LogGroupName string     `json:"logGroupName,omitempty"`
}
