// Package agent connects airport to text-generation providers.
//
// It resolves the model/provider configuration and credentials, keeps the
// registry of named conversational agents (persona + model) used for
// narratives, and answers one-shot prompts for code resolution.
package agent
