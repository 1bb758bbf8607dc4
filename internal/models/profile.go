package models

// EnvironmentProfile is a social scenario with one goal per participant role.
// The goals are ordered: index 0 belongs to the human participant and index 1
// to the AI-played participant.
type EnvironmentProfile struct {
	ID           string   `json:"id"            validate:"required"`
	Codename     string   `json:"codename"      validate:"required"`
	Scenario     string   `json:"scenario"      validate:"required"`
	AgentGoals   []string `json:"agent_goals"   validate:"len=2"`
	Relationship string   `json:"relationship"  validate:"required"`
}

// AgentProfile is a persona that can take either side of a conversation.
// AgentID is the identifier that relationship edges use as endpoints.
type AgentProfile struct {
	ID          string `json:"id"          validate:"required"`
	AgentID     string `json:"agent_id"    validate:"required"`
	Name        string `json:"name"        validate:"required"`
	Background  string `json:"background"`
	Personality string `json:"personality"`
}

// RelationshipEdge connects two agents under a relationship type.
// Edges are undirected, so an edge qualifies both endpoints as counterparts
// of each other.
type RelationshipEdge struct {
	Relationship string `json:"relationship" validate:"required"`
	Agent1ID     string `json:"agent1_id"    validate:"required"`
	Agent2ID     string `json:"agent2_id"    validate:"required"`
}
