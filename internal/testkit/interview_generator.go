package testkit

import (
	"fmt"
	"math/rand"
	"strings"

	"qcalab/domain/qca"
)

// InterviewGeneratorConfig configures the synthetic coded-interview generator
type InterviewGeneratorConfig struct {
	InterviewCount int     `json:"interview_count"`
	ConditionRate  float64 `json:"condition_rate"` // Chance each condition code applies to an interview
	NoiseRate      float64 `json:"noise_rate"`     // Chance the outcome is flipped against the planted rule
	// TextOnly drops application records so membership falls back to text matching
	TextOnly bool  `json:"text_only"`
	Seed     int64 `json:"seed"`
}

// DefaultInterviewConfig returns defaults for a small noisy study
func DefaultInterviewConfig() InterviewGeneratorConfig {
	return InterviewGeneratorConfig{
		InterviewCount: 40,
		ConditionRate:  0.5,
		NoiseRate:      0.05,
		Seed:           42,
	}
}

// Condition codes the generator applies, in output order
var ConditionCodes = []string{"Funding", "Champion", "Training", "Resistance"}

// OutcomeCode is the single outcome code (hierarchy level 0)
const OutcomeCode = "Adoption"

// PlantedRule is the outcome rule before noise:
// Funding * Champion + Training * ~Resistance
func PlantedRule(member map[string]bool) bool {
	return (member["Funding"] && member["Champion"]) || (member["Training"] && !member["Resistance"])
}

// Phrases used when a code shows up in a transcript
var codePhrases = map[string]string{
	"Funding":    "Funding was secured early in the project.",
	"Champion":   "A Champion in leadership pushed the rollout.",
	"Training":   "Training sessions were offered to every team.",
	"Resistance": "There was Resistance from middle management.",
	OutcomeCode:  "Adoption across departments followed.",
}

const fillerSentence = "The interviewee described the daily routine in detail."

// InterviewGenerator produces codebooks with a known causal structure
type InterviewGenerator struct {
	config InterviewGeneratorConfig
	rng    *rand.Rand
}

// NewInterviewGenerator creates a seeded generator
func NewInterviewGenerator(config InterviewGeneratorConfig) *InterviewGenerator {
	return &InterviewGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate returns codes (conditions at hierarchy level 1, the outcome at
// level 0) and interview cases. The same seed gives the same codebook.
func (g *InterviewGenerator) Generate() ([]qca.Code, []qca.Case, error) {
	if g.config.InterviewCount < qca.MinCases {
		return nil, nil, fmt.Errorf("interview count must be at least %d", qca.MinCases)
	}
	if g.config.ConditionRate < 0 || g.config.ConditionRate > 1 || g.config.NoiseRate < 0 || g.config.NoiseRate > 1 {
		return nil, nil, fmt.Errorf("rates must be within [0,1]")
	}

	names := append(append([]string{}, ConditionCodes...), OutcomeCode)
	applied := make(map[string][]string, len(names))
	for _, name := range names {
		applied[name] = []string{}
	}

	cases := make([]qca.Case, g.config.InterviewCount)
	for i := range cases {
		id := fmt.Sprintf("interview_%03d", i+1)
		member := make(map[string]bool, len(names))
		for _, name := range ConditionCodes {
			member[name] = g.rng.Float64() < g.config.ConditionRate
		}
		outcome := PlantedRule(member)
		if g.rng.Float64() < g.config.NoiseRate {
			outcome = !outcome
		}
		member[OutcomeCode] = outcome

		var text strings.Builder
		text.WriteString(fillerSentence)
		for _, name := range names {
			if member[name] {
				applied[name] = append(applied[name], id)
				text.WriteString(" ")
				text.WriteString(codePhrases[name])
			}
		}
		cases[i] = qca.Case{ID: id, Text: text.String()}
	}

	codes := make([]qca.Code, 0, len(names))
	for _, name := range names {
		code := qca.Code{
			Name:           name,
			Description:    "synthetic code",
			Frequency:      len(applied[name]),
			HierarchyLevel: 1,
		}
		if name == OutcomeCode {
			code.HierarchyLevel = 0
		}
		if !g.config.TextOnly {
			code.Applications = applied[name]
		}
		codes = append(codes, code)
	}
	return codes, cases, nil
}
