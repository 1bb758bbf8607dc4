// Package profilecmd holds the CLI commands for inspecting profile data and
// previewing the prompts built from it.
package profilecmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/profiles"
	"github.com/myrjola/sotopia-chat/internal/prompt"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "profiles",
	Title: "Profile operations",
}

func init() {
	Validate.Flags().String("dir", "", "profile directory, the bundled demo profiles when empty")
	List.Flags().String("dir", "", "profile directory, the bundled demo profiles when empty")
	RenderPrompt.Flags().String("dir", "", "profile directory, the bundled demo profiles when empty")
	RenderPrompt.Flags().String("environment", "", "scenario label or id, the first scenario when empty")
	RenderPrompt.Flags().String("user-agent", "", "agent played by the visitor, the first candidate when empty")
	RenderPrompt.Flags().String("bot-agent", "", "agent played by the model, the first counterpart when empty")
	RenderPrompt.Flags().String("message", "Hello!", "the visitor's message")
	RenderPrompt.Flags().Int("max-chars", 0, "prompt length bound, 0 disables it")
}

// loadSnapshot loads profiles from the --dir flag or the bundled demo data.
func loadSnapshot(cmd *cobra.Command) (*profiles.Snapshot, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return nil, errors.Wrap(err, "read dir flag")
	}
	store := profiles.Embedded()
	if dir != "" {
		store = profiles.NewStore(os.DirFS(dir))
	}
	snapshot, err := store.Load(profiles.DefaultSources)
	if err != nil {
		return nil, errors.Wrap(err, "load profiles")
	}
	return snapshot, nil
}

var Validate = &cobra.Command{ //nolint:exhaustruct // rest of the fields are optional
	Use:     "validate",
	GroupID: "profiles",
	Short:   "Validate profile sources",
	Long: `Parses and cross-checks the profile sources the same way the server does on
startup, so that broken data is caught before a deploy.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		snapshot, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		cmd.Printf("OK: %d scenarios\n", len(snapshot.Environments()))
		return nil
	},
}

var List = &cobra.Command{ //nolint:exhaustruct // rest of the fields are optional
	Use:     "list",
	GroupID: "profiles",
	Short:   "List scenarios",
	Long:    `Lists the scenarios in display order with the agents that can be played in them.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		snapshot, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}
		for _, environment := range snapshot.Environments() {
			candidates, err := snapshot.CandidateUserAgents(environment.ID)
			if err != nil {
				return errors.Wrap(err, "candidate user agents")
			}
			names := make([]string, 0, len(candidates))
			for _, candidate := range candidates {
				agent, err := snapshot.AgentByEndpoint(candidate)
				if err != nil {
					return errors.Wrap(err, "resolve agent")
				}
				names = append(names, agent.Name)
			}
			cmd.Printf("%s (%s)\n", environment.Label, environment.ID)
			if len(names) == 0 {
				cmd.Println("  no playable agents")
				continue
			}
			cmd.Printf("  %s\n", strings.Join(names, ", "))
		}
		return nil
	},
}

var RenderPrompt = &cobra.Command{ //nolint:exhaustruct // rest of the fields are optional
	Use:     "render",
	GroupID: "profiles",
	Short:   "Render a prompt",
	Long: `Renders the prompt the server would send to the inference endpoint for the
given scenario, participants, and message. Useful for eyeballing what a tuned
model actually sees.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		snapshot, err := loadSnapshot(cmd)
		if err != nil {
			return err
		}

		environmentID, err := resolveEnvironment(cmd, snapshot)
		if err != nil {
			return err
		}
		environment, err := snapshot.Environment(environmentID)
		if err != nil {
			return errors.Wrap(err, "resolve environment")
		}

		userAgentID, err := resolveFlagOrFirst(cmd, "user-agent", func() ([]string, error) {
			return snapshot.CandidateUserAgents(environmentID)
		})
		if err != nil {
			return err
		}
		botAgentID, err := resolveFlagOrFirst(cmd, "bot-agent", func() ([]string, error) {
			return snapshot.CandidateBotAgents(environmentID, userAgentID)
		})
		if err != nil {
			return err
		}

		userAgent, err := snapshot.AgentByEndpoint(userAgentID)
		if err != nil {
			return errors.Wrap(err, "resolve user agent")
		}
		botAgent, err := snapshot.AgentByEndpoint(botAgentID)
		if err != nil {
			return errors.Wrap(err, "resolve bot agent")
		}

		message, err := cmd.Flags().GetString("message")
		if err != nil {
			return errors.Wrap(err, "read message flag")
		}
		maxChars, err := cmd.Flags().GetInt("max-chars")
		if err != nil {
			return errors.Wrap(err, "read max-chars flag")
		}

		composer := prompt.Composer{MaxChars: maxChars}
		cmd.Println(composer.Build(message, nil, "", userAgent, botAgent, environment))
		return nil
	},
}

// resolveEnvironment matches the --environment flag against scenario labels
// and ids, defaulting to the first scenario.
func resolveEnvironment(cmd *cobra.Command, snapshot *profiles.Snapshot) (string, error) {
	flagValue, err := cmd.Flags().GetString("environment")
	if err != nil {
		return "", errors.Wrap(err, "read environment flag")
	}
	environments := snapshot.Environments()
	if len(environments) == 0 {
		return "", errors.New("no scenarios available")
	}
	if flagValue == "" {
		return environments[0].ID, nil
	}
	for _, environment := range environments {
		if environment.Label == flagValue || environment.ID == flagValue {
			return environment.ID, nil
		}
	}
	return "", fmt.Errorf("unknown scenario %q", flagValue)
}

// resolveFlagOrFirst returns the flag value, or the first candidate when the
// flag is empty.
func resolveFlagOrFirst(cmd *cobra.Command, flagName string, candidates func() ([]string, error)) (string, error) {
	flagValue, err := cmd.Flags().GetString(flagName)
	if err != nil {
		return "", errors.Wrap(err, "read flag")
	}
	if flagValue != "" {
		return flagValue, nil
	}
	resolved, err := candidates()
	if err != nil {
		return "", errors.Wrap(err, "resolve candidates")
	}
	if len(resolved) == 0 {
		return "", fmt.Errorf("no candidates for --%s", flagName)
	}
	return resolved[0], nil
}
