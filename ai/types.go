package ai

// Role identifies the author of a chat message sent to a completion model.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a completion request's history.
type Message struct {
	Role    Role
	Content string
}

// UserMessage is shorthand for a user-authored Message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage is shorthand for an assistant-authored Message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ExtractedProfile is the raw result of profile extraction. Zero values mean
// the messages did not mention the field.
type ExtractedProfile struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Profession string   `json:"profession"`
	Hobbies    []string `json:"hobby"`
}
