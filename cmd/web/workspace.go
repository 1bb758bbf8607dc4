package main

import (
	"net/http"
	"slices"

	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/models"
	"github.com/myrjola/sotopia-chat/internal/profiles"
	"github.com/myrjola/sotopia-chat/internal/prompt"
)

// selection is the visitor's choice of scenario, participants, and model. The
// agent ids are relationship endpoint ids.
type selection struct {
	EnvironmentID string
	UserAgentID   string
	BotAgentID    string
	Model         string
}

type agentOption struct {
	ID   string
	Name string
}

type panelData struct {
	Environments  []profiles.DisplayEnvironment
	EnvironmentID string
	Scenario      string
	UserAgents    []agentOption
	UserAgentID   string
	UserInfo      string
	BotAgents     []agentOption
	BotAgentID    string
	BotInfo       string
	Models        []string
	Model         string
}

type chatData struct {
	// Selection is repeated in hidden form fields so that a chat post carries
	// the setup it was rendered for.
	Selection     selection
	Turns         []models.ChatTurn
	UserAgentName string
	BotAgentName  string
	CanChat       bool
	Error         string
}

type workspaceData struct {
	Panel panelData
	Chat  chatData
}

func parseSelection(r *http.Request) selection {
	return selection{
		EnvironmentID: r.FormValue("environment"),
		UserAgentID:   r.FormValue("user_agent"),
		BotAgentID:    r.FormValue("bot_agent"),
		Model:         r.FormValue("model"),
	}
}

// normalizeSelection resolves the given selection against the profile data.
// Stale or missing values fall back to the first valid candidate, so the
// result is always consistent: the user agent appears in an edge of the
// environment's relationship and the bot agent is one of its counterparts.
// Fields without any valid candidate are empty.
func (app *application) normalizeSelection(sel selection) selection {
	environments := app.snapshot.Environments()
	if len(environments) == 0 {
		return selection{} //nolint:exhaustruct // there is nothing to select
	}
	if !slices.ContainsFunc(environments, func(e profiles.DisplayEnvironment) bool {
		return e.ID == sel.EnvironmentID
	}) {
		sel.EnvironmentID = environments[0].ID
	}

	userAgents, err := app.snapshot.CandidateUserAgents(sel.EnvironmentID)
	if err != nil || len(userAgents) == 0 {
		sel.UserAgentID = ""
		sel.BotAgentID = ""
	} else {
		if !slices.Contains(userAgents, sel.UserAgentID) {
			sel.UserAgentID = userAgents[0]
		}
		botAgents, err := app.snapshot.CandidateBotAgents(sel.EnvironmentID, sel.UserAgentID)
		if err != nil || len(botAgents) == 0 {
			// No compatible counterpart. The UI renders a disabled empty
			// state in this case.
			sel.BotAgentID = ""
		} else if !slices.Contains(botAgents, sel.BotAgentID) {
			sel.BotAgentID = botAgents[0]
		}
	}

	if !slices.Contains(app.models, sel.Model) {
		if len(app.models) > 0 {
			sel.Model = app.models[0]
		} else {
			sel.Model = ""
		}
	}
	return sel
}

// validSelection reports whether the selection is playable as submitted:
// normalization would not change it and both participants are present.
func (app *application) validSelection(sel selection) bool {
	return sel == app.normalizeSelection(sel) && sel.UserAgentID != "" && sel.BotAgentID != "" && sel.Model != ""
}

// agentOptions resolves endpoint ids to dropdown options. Duplicates are kept:
// parallel edges mean the same counterpart shows up once per edge.
func (app *application) agentOptions(agentIDs []string) ([]agentOption, error) {
	options := make([]agentOption, 0, len(agentIDs))
	for _, agentID := range agentIDs {
		agent, err := app.snapshot.AgentByEndpoint(agentID)
		if err != nil {
			return nil, errors.Wrap(err, "resolve agent option")
		}
		options = append(options, agentOption{ID: agent.AgentID, Name: agent.Name})
	}
	return options, nil
}

// workspaceState computes everything the panel and chat templates need from a
// normalized selection and the chat transcript, if any.
func (app *application) workspaceState(sel selection, chat *models.Chat, chatError string) (workspaceData, error) {
	data := workspaceData{ //nolint:exhaustruct // filled in below
		Panel: panelData{ //nolint:exhaustruct // filled in below
			Environments: app.snapshot.Environments(),
			Models:       app.models,
			Model:        sel.Model,
		},
	}
	if len(data.Panel.Environments) == 0 {
		return data, nil
	}

	environment, err := app.snapshot.Environment(sel.EnvironmentID)
	if err != nil {
		return workspaceData{}, errors.Wrap(err, "resolve environment")
	}
	data.Panel.EnvironmentID = environment.ID
	data.Panel.Scenario = environment.Scenario

	userAgents, err := app.snapshot.CandidateUserAgents(environment.ID)
	if err != nil {
		return workspaceData{}, errors.Wrap(err, "candidate user agents")
	}
	if data.Panel.UserAgents, err = app.agentOptions(userAgents); err != nil {
		return workspaceData{}, err
	}
	data.Panel.UserAgentID = sel.UserAgentID

	if sel.UserAgentID != "" {
		if data.Panel.UserInfo, err = app.snapshot.ProfileText(environment.ID, sel.UserAgentID, profiles.RoleUser); err != nil {
			return workspaceData{}, errors.Wrap(err, "user profile text")
		}
		botAgents, err := app.snapshot.CandidateBotAgents(environment.ID, sel.UserAgentID)
		if err != nil && !errors.Is(err, profiles.ErrNotFound) {
			return workspaceData{}, errors.Wrap(err, "candidate bot agents")
		}
		if data.Panel.BotAgents, err = app.agentOptions(botAgents); err != nil {
			return workspaceData{}, err
		}
	}
	data.Panel.BotAgentID = sel.BotAgentID
	if sel.BotAgentID != "" {
		if data.Panel.BotInfo, err = app.snapshot.ProfileText(environment.ID, sel.BotAgentID, profiles.RoleBot); err != nil {
			return workspaceData{}, errors.Wrap(err, "bot profile text")
		}
	}

	data.Chat, err = app.chatState(sel, chat, chatError)
	if err != nil {
		return workspaceData{}, err
	}
	return data, nil
}

// chatState renders the transcript for the chat section. A chat from another
// selection is ignored: switching scenarios or participants starts fresh.
func (app *application) chatState(sel selection, chat *models.Chat, chatError string) (chatData, error) {
	data := chatData{ //nolint:exhaustruct // filled in below
		Selection: sel,
		CanChat:   sel.UserAgentID != "" && sel.BotAgentID != "" && sel.Model != "",
		Error:     chatError,
	}
	if sel.UserAgentID != "" {
		userAgent, err := app.snapshot.AgentByEndpoint(sel.UserAgentID)
		if err != nil {
			return chatData{}, errors.Wrap(err, "resolve user agent")
		}
		data.UserAgentName = userAgent.Name
	}
	if sel.BotAgentID != "" {
		botAgent, err := app.snapshot.AgentByEndpoint(sel.BotAgentID)
		if err != nil {
			return chatData{}, errors.Wrap(err, "resolve bot agent")
		}
		data.BotAgentName = botAgent.Name
	}
	if chat != nil && chatSelection(chat) == sel {
		data.Turns = chat.Turns
	}
	return data, nil
}

func chatSelection(chat *models.Chat) selection {
	return selection{
		EnvironmentID: chat.EnvironmentID,
		UserAgentID:   chat.UserAgentID,
		BotAgentID:    chat.BotAgentID,
		Model:         chat.Model,
	}
}

// history converts stored turns into the composer's history format.
func history(turns []models.ChatTurn) []prompt.Turn {
	converted := make([]prompt.Turn, 0, len(turns))
	for _, turn := range turns {
		converted = append(converted, prompt.Turn{Message: turn.Message, Reply: turn.Reply})
	}
	return converted
}
