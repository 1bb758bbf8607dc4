package models

// Chat is one conversation between a visitor and an AI-played agent. It pins
// the scenario, the participants, and the model so that later turns and
// retries replay against the same setup the chat started with.
type Chat struct {
	ID            string     `db:"id"`
	SessionToken  string     `db:"session_token"`
	EnvironmentID string     `db:"environment_id"`
	UserAgentID   string     `db:"user_agent_id"`
	BotAgentID    string     `db:"bot_agent_id"`
	Model         string     `db:"model"`
	Turns         []ChatTurn `db:"-"`
}

// ChatTurn is one message and reply exchange within a chat.
type ChatTurn struct {
	Order   int64  `db:"order"`
	Message string `db:"message"`
	Reply   string `db:"reply"`
}
