// Package prompt renders patient context and conversation history into provider
// prompts, and parses provider output back into typed summary fields.
package prompt

import (
	"fmt"
	"strings"

	"github.com/health-intelligence-engine/internal/domain"
)

// ChatHistoryWindow is the number of most recent messages rendered into a chat prompt.
const ChatHistoryWindow = 5

const summaryInstructions = `You are a clinical assistant preparing a concise health summary for a patient's care team.
Use only the information provided below. Do not invent findings and do not provide a diagnosis.

Respond with a single JSON object of exactly this shape:
{
  "summary": "2-4 sentence overview of the patient's recent health activity",
  "keyInsights": ["notable observations"],
  "riskFactors": ["potential risk factors"],
  "recommendations": ["actionable next steps"],
  "healthTrends": ["changes over the timeframe"],
  "urgencyLevel": "low | medium | high | critical"
}`

const chatInstructions = `You are a helpful health assistant talking with a patient about their own records.
Answer clearly and briefly, refer to the patient's data when relevant, and recommend
contacting a healthcare professional for anything that needs clinical judgement.`

// BuildSummaryPrompt renders a patient context snapshot into the structured
// summary instruction.
func BuildSummaryPrompt(pc *domain.PatientContext) string {
	var b strings.Builder
	b.WriteString(summaryInstructions)
	b.WriteString("\n\n")
	writeContext(&b, pc, false)
	b.WriteString("\nReturn only the JSON object.")
	return b.String()
}

// BuildChatPrompt renders the new user message with the most recent history and
// a compact context summary. pc may be nil.
func BuildChatPrompt(message string, history []domain.Message, pc *domain.PatientContext) string {
	var b strings.Builder
	b.WriteString(chatInstructions)
	b.WriteString("\n\n")

	if pc != nil {
		writeContext(&b, pc, true)
		b.WriteString("\n")
	}

	recent := history
	if len(recent) > ChatHistoryWindow {
		recent = recent[len(recent)-ChatHistoryWindow:]
	}
	if len(recent) > 0 {
		b.WriteString("CONVERSATION SO FAR:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", roleLabel(m.Role), strings.TrimSpace(m.Content))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Patient: %s\nAssistant:", strings.TrimSpace(message))
	return b.String()
}

func writeContext(b *strings.Builder, pc *domain.PatientContext, compact bool) {
	fmt.Fprintf(b, "PATIENT CONTEXT (last %d days)\n", pc.TimeframeDays)

	facts := pc.ProfileFacts
	var profile []string
	if facts.Age != nil {
		profile = append(profile, fmt.Sprintf("age %d", *facts.Age))
	}
	if facts.Gender != "" {
		profile = append(profile, "gender "+facts.Gender)
	}
	if len(profile) > 0 {
		fmt.Fprintf(b, "Profile: %s\n", strings.Join(profile, ", "))
	}

	if compact {
		counts := pc.Counts()
		fmt.Fprintf(b, "Records: %d medical reports, %d clinical notes, %d symptom checks\n",
			counts.MedicalReports, counts.ClinicalNotes, counts.SymptomChecks)
		if len(pc.ClinicalNotes) > 0 {
			fmt.Fprintf(b, "Latest clinical note: %s\n", oneLine(pc.ClinicalNotes[0].Text()))
		}
		if len(pc.SymptomChecks) > 0 {
			check := pc.SymptomChecks[0]
			fmt.Fprintf(b, "Latest symptom check: %s (severity %s)\n", strings.Join(check.Symptoms, ", "), check.Severity)
		}
		return
	}

	b.WriteString("\nMEDICAL REPORTS:\n")
	if len(pc.MedicalReports) == 0 {
		b.WriteString("- none\n")
	}
	for _, r := range pc.MedicalReports {
		fmt.Fprintf(b, "- [%s] %s", r.CreatedAt.Format("2006-01-02"), oneLine(r.Title))
		if r.Description != "" {
			fmt.Fprintf(b, ": %s", oneLine(r.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nCLINICAL NOTES:\n")
	if len(pc.ClinicalNotes) == 0 {
		b.WriteString("- none\n")
	}
	for _, n := range pc.ClinicalNotes {
		fmt.Fprintf(b, "- [%s] %s", n.CreatedAt.Format("2006-01-02"), oneLine(n.Text()))
		if n.Comments != "" && n.Diagnosis != "" {
			fmt.Fprintf(b, " (diagnosis: %s)", oneLine(n.Diagnosis))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nSYMPTOM CHECKS:\n")
	if len(pc.SymptomChecks) == 0 {
		b.WriteString("- none\n")
	}
	for _, c := range pc.SymptomChecks {
		fmt.Fprintf(b, "- [%s] symptoms: %s; severity: %s\n",
			c.CreatedAt.Format("2006-01-02"), strings.Join(c.Symptoms, ", "), c.Severity)
	}
}

func roleLabel(role domain.MessageRole) string {
	switch role {
	case domain.RoleAssistant:
		return "Assistant"
	case domain.RoleSystem:
		return "System"
	default:
		return "Patient"
	}
}

// oneLine collapses whitespace so record text cannot break the prompt layout.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
