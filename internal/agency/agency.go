// Package agency configures the research pipeline for public transit
// agencies: the field schema, the research and extraction prompts, and the
// flattening of persisted records for diffing.
package agency

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-cli/internal/agent"
	"github.com/sells-group/agent-cli/internal/audit"
	"github.com/sells-group/agent-cli/internal/config"
	"github.com/sells-group/agent-cli/internal/llm"
	"github.com/sells-group/agent-cli/internal/tools"
)

// AgentType identifies this agent in logs and audit entries.
const AgentType = "agency"

// Schema declares the transit agency field set for structured extraction.
var Schema = llm.Schema{
	Properties: map[string]llm.FieldSpec{
		"name":             {Type: "string", Description: "Official agency name"},
		"short_name":       {Type: "string", Description: "Short name/acronym (e.g., WMATA, BART)"},
		"location":         {Type: "string", Description: "City and state (e.g., Portland, Oregon)"},
		"description":      {Type: "string", Description: "Brief description of the agency (1-2 sentences)"},
		"website":          {Type: "string", Description: "Official website URL"},
		"ceo":              {Type: "string", Description: "Current CEO/General Manager/Executive Director name"},
		"address_hq":       {Type: "string", Description: "Headquarters address"},
		"phone_number":     {Type: "string", Description: "Main phone number"},
		"contact_email":    {Type: "string", Description: "General contact email"},
		"transit_map_link": {Type: "string", Description: "URL to system map"},
		"email_domain":     {Type: "string", Description: "Agency email domain (e.g., trimet.org)"},
	},
	Order: []string{
		"name", "short_name", "location", "description", "website", "ceo",
		"address_hq", "phone_number", "contact_email", "transit_map_link",
		"email_domain",
	},
	Required: []string{"name"},
}

const researchSystemPrompt = `You are a research assistant gathering information about public transit agencies.

Your task is to search the web for accurate, current information about the specified transit agency.

Research priorities:
1. Official name and common abbreviations
2. Headquarters location and full address
3. Current leadership (CEO/General Manager/Executive Director) - verify this is current
4. Official website and contact information (phone, email)
5. Brief description of the transit system

Prioritize official sources (.gov domains, the agency's own website, official press releases) over third-party sources.

Summarize your findings clearly, noting the source for key facts like leadership names.`

const extractionSystemPrompt = `You are a data extraction assistant. Your task is to extract structured data from research findings.

CRITICAL: Respond with ONLY a valid JSON object. No markdown code blocks, no explanation, no text before or after the JSON.

Only include fields where the research provides clear, reliable information. Omit fields that are uncertain or not found.

JSON Schema:
{
  "name": "Official agency name",
  "short_name": "Acronym like BART or WMATA",
  "location": "City, State",
  "description": "Brief 1-2 sentence description",
  "website": "https://...",
  "ceo": "Full name of current CEO/GM/Executive Director",
  "address_hq": "Full headquarters address",
  "phone_number": "Main phone number",
  "contact_email": "General contact email",
  "transit_map_link": "URL to system map",
  "email_domain": "domain.org"
}`

func researchQuestion(entityName string) string {
	return fmt.Sprintf("Research the public transit agency %q. Find their official name, current leadership, headquarters address, website, and contact information.", entityName)
}

// New creates the agency agent, selecting the extraction strategy named in
// configuration.
func New(provider llm.Provider, registry *tools.Registry, store audit.Store, cfg config.AgentConfig) (*agent.Agent, error) {
	strategy, err := StrategyByName(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	return agent.New(agent.Spec{
		Type:                   AgentType,
		Schema:                 Schema,
		ResearchSystemPrompt:   researchSystemPrompt,
		ExtractionSystemPrompt: extractionSystemPrompt,
		ResearchQuestion:       researchQuestion,
		Strategy:               strategy,
	}, agent.Options{
		Provider:  provider,
		Model:     cfg.Model,
		Registry:  registry,
		Store:     store,
		Threshold: func() float64 { return cfg.ConfidenceThreshold },
	}), nil
}

// StrategyByName maps a configured strategy name to its implementation.
func StrategyByName(name string) (agent.Strategy, error) {
	switch name {
	case "", "two_step":
		return agent.TwoStepSearch{}, nil
	case "structured":
		return agent.StructuredSingle{}, nil
	case "structured_confidence":
		return agent.StructuredWithConfidence{}, nil
	default:
		return nil, eris.Errorf("agency: unknown strategy: %s", name)
	}
}

// RecordFields lists the persisted record fields compared during diffing.
var RecordFields = []string{
	"name", "short_name", "location", "description", "website", "ceo",
	"address_hq", "phone_number", "contact_email", "transit_map_link",
	"email_domain",
}

// FlattenRecord reduces an external record handle to the flat field mapping
// the diff stage consumes, keeping only schema fields with non-empty values.
func FlattenRecord(record map[string]any) map[string]any {
	flat := make(map[string]any, len(RecordFields))
	for _, field := range RecordFields {
		if v, ok := record[field]; ok && v != nil {
			flat[field] = v
		}
	}
	return flat
}
