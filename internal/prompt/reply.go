package prompt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/sotopia-chat/internal/errors"
)

// ErrMalformedOutput means the model output did not contain a parseable action.
var ErrMalformedOutput = errors.NewSentinel("model output could not be parsed into a reply")

// PlaceholderReply is stored and shown in place of a reply that could not be
// parsed, so the transcript never shows a silent empty bubble.
const PlaceholderReply = "(The model produced a reply that could not be understood.)"

// ConversationEnded is shown when the AI-played agent leaves the conversation.
const ConversationEnded = "(The conversation has ended.)"

// action is the schema tuned models answer with.
type action struct {
	Type     string `json:"action_type"`
	Argument string `json:"argument"`
}

// ExtractReply turns raw model output into the text shown in the chat. The
// output is expected to contain a JSON action object, possibly surrounded by
// role markers or a hallucinated next turn, which are discarded. The action
// maps to chat text as follows:
//
//   - "speak": the argument as-is
//   - "non-verbal communication" and "action": the argument prefixed with the
//     bracketed action type, e.g. `[action] waves goodbye`
//   - "leave": ConversationEnded
//   - "none": an empty string
//
// Anything else fails with ErrMalformedOutput.
func ExtractReply(raw string) (string, error) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", errors.Wrap(ErrMalformedOutput, "no action object in output", slog.String("output", raw))
	}

	// Decode only the first JSON object so that trailing text, such as a
	// hallucinated next turn, is discarded.
	var act action
	if err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&act); err != nil {
		return "", errors.Wrap(errors.Join(ErrMalformedOutput, err), "decode action object")
	}

	switch act.Type {
	case "speak":
		return strings.TrimSpace(act.Argument), nil
	case "non-verbal communication", "action":
		return fmt.Sprintf("[%s] %s", act.Type, strings.TrimSpace(act.Argument)), nil
	case "leave":
		return ConversationEnded, nil
	case "none":
		return "", nil
	default:
		return "", errors.Wrap(ErrMalformedOutput, "unknown action type", slog.String("actionType", act.Type))
	}
}
