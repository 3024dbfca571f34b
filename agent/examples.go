package agent

var exampleConfigs = map[Framework]string{
	FrameworkCrewAI: `{
  "role": "Research Assistant",
  "goal": "Gather and analyze information",
  "backstory": "Expert researcher with attention to detail",
  "tools": ["search", "scrape"],
  "verbose": true
}`,
	FrameworkLangchain: `{
  "llm": "gpt-4",
  "temperature": 0.7,
  "max_tokens": 2000,
  "tools": ["calculator", "wikipedia"],
  "memory": "conversation_buffer"
}`,
	FrameworkOpenAI: `{
  "model": "gpt-4",
  "temperature": 0.7,
  "max_tokens": 1500,
  "system_message": "You are a helpful assistant"
}`,
}

// ExampleConfig returns the canned example configuration for a framework.
func ExampleConfig(f Framework) (string, bool) {
	example, ok := exampleConfigs[f]
	return example, ok
}

// isExampleConfig reports whether text is one of the canned examples.
func isExampleConfig(text string) bool {
	for _, example := range exampleConfigs {
		if text == example {
			return true
		}
	}
	return false
}
