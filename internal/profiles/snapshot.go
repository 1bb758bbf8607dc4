package profiles

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/models"
)

// Roles index into EnvironmentProfile.AgentGoals.
const (
	RoleUser = 0
	RoleBot  = 1
)

// DisplayEnvironment pairs a unique UI label with the environment it selects.
type DisplayEnvironment struct {
	Label string
	ID    string
}

// Snapshot is an immutable view over parsed profile data. All methods are safe
// for concurrent use.
type Snapshot struct {
	displayList      []DisplayEnvironment
	environments     map[string]models.EnvironmentProfile
	agents           map[string]models.AgentProfile
	agentsByEndpoint map[string]models.AgentProfile
	// endpoints lists the agents that appear in edges of a relationship type,
	// in the order they are first seen.
	endpoints map[string][]string
	// counterparts maps a relationship type and an endpoint to the other ends
	// of its edges in insertion order.
	counterparts map[string]map[string][]string
}

func buildSnapshot(
	environments []models.EnvironmentProfile,
	agents []models.AgentProfile,
	edges []models.RelationshipEdge,
) (*Snapshot, error) {
	snapshot := &Snapshot{
		displayList:      buildDisplayList(environments),
		environments:     make(map[string]models.EnvironmentProfile, len(environments)),
		agents:           make(map[string]models.AgentProfile, len(agents)),
		agentsByEndpoint: make(map[string]models.AgentProfile, len(agents)),
		endpoints:        make(map[string][]string),
		counterparts:     make(map[string]map[string][]string),
	}

	for _, environment := range environments {
		if _, ok := snapshot.environments[environment.ID]; ok {
			return nil, errors.Wrap(ErrIntegrity, "duplicate environment id", slog.String("id", environment.ID))
		}
		snapshot.environments[environment.ID] = environment
	}

	for _, agent := range agents {
		if _, ok := snapshot.agents[agent.ID]; ok {
			return nil, errors.Wrap(ErrIntegrity, "duplicate agent id", slog.String("id", agent.ID))
		}
		if _, ok := snapshot.agentsByEndpoint[agent.AgentID]; ok {
			return nil, errors.Wrap(ErrIntegrity, "duplicate agent endpoint id", slog.String("agentID", agent.AgentID))
		}
		snapshot.agents[agent.ID] = agent
		snapshot.agentsByEndpoint[agent.AgentID] = agent
	}

	for _, edge := range edges {
		for _, endpoint := range [...]string{edge.Agent1ID, edge.Agent2ID} {
			if _, ok := snapshot.agentsByEndpoint[endpoint]; !ok {
				return nil, errors.Wrap(ErrIntegrity, "relationship edge references unknown agent",
					slog.String("agentID", endpoint),
					slog.String("relationship", edge.Relationship))
			}
		}
		snapshot.addEdge(edge)
	}

	return snapshot, nil
}

// buildDisplayList sorts environments by codename and disambiguates duplicate
// codenames with a numbered suffix, so the second "negotiation" becomes
// "negotiation_00001".
func buildDisplayList(environments []models.EnvironmentProfile) []DisplayEnvironment {
	sorted := slices.Clone(environments)
	slices.SortStableFunc(sorted, func(a, b models.EnvironmentProfile) int {
		return strings.Compare(a.Codename, b.Codename)
	})

	displayList := make([]DisplayEnvironment, 0, len(sorted))
	seen := make(map[string]int, len(sorted))
	for _, environment := range sorted {
		label := environment.Codename
		if n := seen[environment.Codename]; n > 0 {
			label = fmt.Sprintf("%s_%05d", environment.Codename, n)
		}
		seen[environment.Codename]++
		displayList = append(displayList, DisplayEnvironment{Label: label, ID: environment.ID})
	}
	return displayList
}

func (s *Snapshot) addEdge(edge models.RelationshipEdge) {
	counterparts, ok := s.counterparts[edge.Relationship]
	if !ok {
		counterparts = make(map[string][]string)
		s.counterparts[edge.Relationship] = counterparts
	}
	for _, endpoint := range [...]string{edge.Agent1ID, edge.Agent2ID} {
		if _, seen := counterparts[endpoint]; !seen {
			counterparts[endpoint] = []string{}
			s.endpoints[edge.Relationship] = append(s.endpoints[edge.Relationship], endpoint)
		}
	}
	counterparts[edge.Agent1ID] = append(counterparts[edge.Agent1ID], edge.Agent2ID)
	counterparts[edge.Agent2ID] = append(counterparts[edge.Agent2ID], edge.Agent1ID)
}

// Environments lists the scenarios in display order.
func (s *Snapshot) Environments() []DisplayEnvironment {
	return slices.Clone(s.displayList)
}

// Environment looks up an environment by id.
func (s *Snapshot) Environment(id string) (models.EnvironmentProfile, error) {
	environment, ok := s.environments[id]
	if !ok {
		return models.EnvironmentProfile{}, errors.Wrap(ErrNotFound, "unknown environment", slog.String("id", id))
	}
	return environment, nil
}

// Agent looks up an agent by its primary id.
func (s *Snapshot) Agent(id string) (models.AgentProfile, error) {
	agent, ok := s.agents[id]
	if !ok {
		return models.AgentProfile{}, errors.Wrap(ErrNotFound, "unknown agent", slog.String("id", id))
	}
	return agent, nil
}

// AgentByEndpoint looks up an agent by the id relationship edges use.
func (s *Snapshot) AgentByEndpoint(agentID string) (models.AgentProfile, error) {
	agent, ok := s.agentsByEndpoint[agentID]
	if !ok {
		return models.AgentProfile{}, errors.Wrap(ErrNotFound, "unknown agent endpoint", slog.String("agentID", agentID))
	}
	return agent, nil
}

// CandidateUserAgents lists the agents that can take the human side of the
// given environment: every agent that appears in an edge of the environment's
// relationship type, in first-seen order. The list is empty when the
// relationship type has no edges.
func (s *Snapshot) CandidateUserAgents(environmentID string) ([]string, error) {
	environment, err := s.Environment(environmentID)
	if err != nil {
		return nil, err
	}
	// Clone so that callers cannot mutate the snapshot.
	return append([]string{}, s.endpoints[environment.Relationship]...), nil
}

// CandidateBotAgents lists the agents that can play the AI side against the
// given user agent: the other ends of the user agent's edges under the
// environment's relationship type, in insertion order with duplicates kept.
// Returns ErrNotFound when the user agent has no counterparts.
func (s *Snapshot) CandidateBotAgents(environmentID, userAgentID string) ([]string, error) {
	environment, err := s.Environment(environmentID)
	if err != nil {
		return nil, err
	}
	counterparts := s.counterparts[environment.Relationship][userAgentID]
	if len(counterparts) == 0 {
		return nil, errors.Wrap(ErrNotFound, "no compatible bot agents",
			slog.String("environmentID", environmentID),
			slog.String("userAgentID", userAgentID))
	}
	return slices.Clone(counterparts), nil
}

// ProfileText renders the description shown for the agent playing the given
// role: background, personality, and the role's goal from the environment.
func (s *Snapshot) ProfileText(environmentID, agentID string, role int) (string, error) {
	if role != RoleUser && role != RoleBot {
		return "", errors.New("role must be RoleUser or RoleBot", slog.Int("role", role))
	}
	environment, err := s.Environment(environmentID)
	if err != nil {
		return "", err
	}
	agent, err := s.AgentByEndpoint(agentID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s \n %s", agent.Background, agent.Personality, environment.AgentGoals[role]), nil
}
