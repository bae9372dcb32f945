package dto

// DeployRequest names the process being deployed. An empty name falls back
// to the configured default.
type DeployRequest struct {
	ProcessName string `json:"processName,omitempty" validate:"max=200"`
}

// StartRequest starts an instance of a deployed process.
type StartRequest struct {
	ProcessDefinitionKey string                 `json:"processDefinitionKey" validate:"required"`
	BusinessKey          string                 `json:"businessKey,omitempty"`
	Variables            map[string]interface{} `json:"variables,omitempty"`
}

// EngineResponse relays the engine's answer.
type EngineResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}
