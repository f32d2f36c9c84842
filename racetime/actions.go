package racetime

// Action is one selectable action attached to a chat message, mirroring
// the host's msg_actions schema. A plain link action carries only Label
// and URL.
type Action struct {
	Label    string        `json:"label"`
	HelpText string        `json:"help_text,omitempty"`
	Message  string        `json:"message,omitempty"`
	Submit   string        `json:"submit,omitempty"`
	URL      string        `json:"url,omitempty"`
	Survey   []SurveyInput `json:"survey,omitempty"`
}

// SurveyInput is one input of an action's survey form.
type SurveyInput struct {
	Type    string            `json:"type"`
	Name    string            `json:"name"`
	Label   string            `json:"label"`
	Options map[string]string `json:"options,omitempty"`
	Default string            `json:"default,omitempty"`
}

// SelectInput builds a select survey input.
func SelectInput(name, label string, options map[string]string, defaultValue string) SurveyInput {
	return SurveyInput{
		Type:    "select",
		Name:    name,
		Label:   label,
		Options: options,
		Default: defaultValue,
	}
}

// Link builds an action that opens a URL.
func Link(label, url string) Action {
	return Action{Label: label, URL: url}
}
