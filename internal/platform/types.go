package platform

import "fmt"

// Graph token scopes accepted by the platform.
const (
	ScopeGraphMail   = "graph:mail"
	ScopeGraphPeople = "graph:people"
)

// MongoDBDetails describes the MongoDB deployment registered for a project.
type MongoDBDetails struct {
	ConnectionString string `json:"connection_string"`
}

// GraphToken is a Microsoft Graph access token minted by the platform.
type GraphToken struct {
	AccessToken string `json:"access_token"`
}

// Flow holds the details of a Power Automate flow as returned by the platform.
type Flow map[string]any

// UpstreamError is returned when the platform answers with a non-2xx status.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("unable to get %s: (%d) %s", e.Operation, e.StatusCode, e.Body)
}
