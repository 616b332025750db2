package provider

import "github.com/health-intelligence-engine/internal/domain"

// catalog lists the models offered to clients. Any identifier matching a
// family prefix is routable; this list only drives model pickers.
var catalog = []domain.ModelInfo{
	{ID: "gpt-4o", Family: string(FamilyOpenAI), DisplayName: "GPT-4o"},
	{ID: "gpt-4o-mini", Family: string(FamilyOpenAI), DisplayName: "GPT-4o mini"},
	{ID: "gpt-5", Family: string(FamilyOpenAI), DisplayName: "GPT-5"},
	{ID: "gpt-5-mini", Family: string(FamilyOpenAI), DisplayName: "GPT-5 mini"},
	{ID: "gemini-1.5-pro", Family: string(FamilyGemini), DisplayName: "Gemini 1.5 Pro"},
	{ID: "gemini-1.5-flash", Family: string(FamilyGemini), DisplayName: "Gemini 1.5 Flash"},
	{ID: "gemini-2.0-flash", Family: string(FamilyGemini), DisplayName: "Gemini 2.0 Flash"},
	{ID: "claude-3-5-sonnet-latest", Family: string(FamilyAnthropic), DisplayName: "Claude 3.5 Sonnet"},
	{ID: "claude-3-5-haiku-latest", Family: string(FamilyAnthropic), DisplayName: "Claude 3.5 Haiku"},
}
