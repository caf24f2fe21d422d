package domain

type PolicyInput struct {
	Subject  string   `json:"subject"`
	Roles    []string `json:"roles"`
	Action   string   `json:"action"`
	Resource string   `json:"resource,omitempty"`
}

type PolicyResult struct {
	Allow bool     `json:"allow"`
	Deny  []string `json:"deny,omitempty"`
}
