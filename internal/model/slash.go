package model

// SlashCommandRequest is the form-encoded payload the chat platform sends
// when a user invokes a slash command.
type SlashCommandRequest struct {
	ChannelID   string `form:"channel_id" binding:"required"`
	ChannelName string `form:"channel_name"`
	Command     string `form:"command" binding:"required"`
	ResponseURL string `form:"response_url"`
	TeamDomain  string `form:"team_domain"`
	TeamID      string `form:"team_id"`
	Text        string `form:"text"`
	Token       string `form:"token"`
	TriggerID   string `form:"trigger_id"`
	UserID      string `form:"user_id" binding:"required"`
	UserName    string `form:"user_name"`
}

// AttachmentField is a key/value pair rendered inside an attachment.
type AttachmentField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// AttachmentAction is an interactive button on an attachment.
type AttachmentAction struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Integration map[string]any `json:"integration,omitempty"`
}

// Attachment is a rich message block in a slash command response.
type Attachment struct {
	Fallback  string             `json:"fallback,omitempty"`
	Color     string             `json:"color,omitempty"`
	Pretext   string             `json:"pretext,omitempty"`
	Title     string             `json:"title,omitempty"`
	TitleLink string             `json:"title_link,omitempty"`
	Text      string             `json:"text,omitempty"`
	Fields    []AttachmentField  `json:"fields,omitempty"`
	Actions   []AttachmentAction `json:"actions,omitempty"`
	Footer    string             `json:"footer,omitempty"`
}

// SlashCommandResponse is what the chat platform renders back to the user.
// response_type "ephemeral" is visible only to the invoking user,
// "in_channel" to everyone.
type SlashCommandResponse struct {
	ResponseType string       `json:"response_type"`
	Text         string       `json:"text,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}
