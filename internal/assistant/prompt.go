package assistant

import "fmt"

const defaultScenario = "Free-form conversation about users, scheduled calls and tasks."

// SystemPrompt builds the per-run system message. It is regenerated on every
// run because the scenario can change between turns of one conversation.
func SystemPrompt(scenarioContext string) string {
	if scenarioContext == "" {
		scenarioContext = defaultScenario
	}
	return fmt.Sprintf(`You are demonstrating the Model Context Protocol (MCP).
You have access to tools for managing users, calls, and tasks via an MCP server.

Scenario Context: %s

When the user makes a request:
1. Analyze what they're asking for
2. Use the available MCP tools to complete the request
3. Explain each step clearly

Be concise and clear in your explanations.`, scenarioContext)
}
