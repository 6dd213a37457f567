package a2a

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
)

// ProtocolVersion is the A2A protocol revision this host speaks.
const ProtocolVersion = "0.3.0"

// Transport identifiers used in the card's interface listings.
const (
	TransportJSONRPC  = "JSONRPC"
	TransportHTTPJSON = "HTTP+JSON"
)

/*
AgentCard is the discovery document served at the well-known path.  It tells
clients where the agent lives, which transports it speaks and what skills it
advertises.
*/
type AgentCard struct {
	ProtocolVersion      string                    `json:"protocolVersion"`
	Name                 string                    `json:"name"`
	Description          string                    `json:"description,omitempty"`
	URL                  string                    `json:"url"`
	PreferredTransport   string                    `json:"preferredTransport,omitempty"`
	AdditionalInterfaces []AgentInterface          `json:"additionalInterfaces,omitempty"`
	Version              string                    `json:"version"`
	Capabilities         AgentCapabilities         `json:"capabilities"`
	SecuritySchemes      map[string]SecurityScheme `json:"securitySchemes,omitempty"`
	Security             []map[string][]string     `json:"security,omitempty"`
	DefaultInputModes    []string                  `json:"defaultInputModes"`
	DefaultOutputModes   []string                  `json:"defaultOutputModes"`
	Skills               []AgentSkill              `json:"skills"`
}

// AgentInterface names one transport binding of the agent.
type AgentInterface struct {
	URL       string `json:"url"`
	Transport string `json:"transport"`
}

type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// SecurityScheme describes one accepted authentication mechanism.
type SecurityScheme struct {
	Type         string `json:"type"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
	Description  string `json:"description,omitempty"`
}

// BearerSecurityScheme is the default scheme advertised by the host.
func BearerSecurityScheme() SecurityScheme {
	return SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
		Description:  "JWT bearer token authentication",
	}
}

type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

/*
NewAgentCardFromConfig builds the static part of a card from the viper keys
under agent.<key>, resolving each listed skill from skills.<name>.  The
transport-dependent fields (url, interfaces, security) are filled in by the
card builder when a request arrives.
*/
func NewAgentCardFromConfig(key string) *AgentCard {
	base := "agent." + key + "."

	card := &AgentCard{
		ProtocolVersion: ProtocolVersion,
		Name:            viper.GetString(base + "name"),
		Description:     viper.GetString(base + "description"),
		Version:         viper.GetString(base + "version"),
		Capabilities: AgentCapabilities{
			Streaming:         true,
			PushNotifications: viper.GetBool("server.pushNotifications"),
		},
		DefaultInputModes:  []string{"application/json"},
		DefaultOutputModes: []string{"application/json"},
	}

	for _, skill := range viper.GetStringSlice(base + "skills") {
		card.Skills = append(card.Skills, NewSkillFromConfig(skill))
	}

	return card
}

// NewSkillFromConfig reads one declarative skill descriptor from the
// skills.<key> config tree.
func NewSkillFromConfig(key string) AgentSkill {
	base := "skills." + key + "."

	skill := AgentSkill{
		ID:          viper.GetString(base + "id"),
		Name:        viper.GetString(base + "name"),
		Tags:        viper.GetStringSlice(base + "tags"),
		Examples:    viper.GetStringSlice(base + "examples"),
		InputModes:  viper.GetStringSlice(base + "inputModes"),
		OutputModes: viper.GetStringSlice(base + "outputModes"),
	}

	if description := viper.GetString(base + "description"); description != "" {
		skill.Description = &description
	}

	return skill
}

var (
	cardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5C67A"))
	cardFieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8F98"))
)

func (card *AgentCard) String() string {
	var sb strings.Builder

	sb.WriteString(cardTitleStyle.Render(fmt.Sprintf("%s (%s)", card.Name, card.Version)))
	sb.WriteString("\n")
	sb.WriteString(cardFieldStyle.Render(fmt.Sprintf("  %s", card.URL)))
	sb.WriteString("\n")
	sb.WriteString(cardFieldStyle.Render(fmt.Sprintf("  %d skills, streaming=%t", len(card.Skills), card.Capabilities.Streaming)))

	return sb.String()
}
