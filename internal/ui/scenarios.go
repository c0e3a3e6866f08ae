package ui

// Scenario is a canned demo request. An empty Context selects free chat.
type Scenario struct {
	Title   string
	Context string
	Prompt  string
}

var Scenarios = []Scenario{
	{
		Title:   "Free chat",
		Context: "",
		Prompt:  "",
	},
	{
		Title:   "Register client & schedule onboarding",
		Context: "Register a new client and schedule their onboarding call",
		Prompt:  "Please register our new client 'Azollon International' with the contact María García (maria@test-azollon.com) and schedule an onboarding call for this Friday at 10am.",
	},
	{
		Title:   "Query & update calls",
		Context: "Query scheduled calls and update their status",
		Prompt:  "Show me all pending calls and mark the first one as completed.",
	},
	{
		Title:   "Follow-up tasks",
		Context: "Create follow-up tasks for clients with scheduled calls - complex multi-step workflow",
		Prompt:  "Create a follow-up task for every client that has a call scheduled this week.",
	},
}
