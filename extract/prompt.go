package extract

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"liftbot/lift"
)

// Schema describes one element of the expected answer.
func Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"exercise": {Types: []string{"string", "null"}},
			"sets":     {Types: []string{"integer", "null"}, Minimum: float(lift.MinSets), Maximum: float(lift.MaxSets)},
			"reps":     {Types: []string{"integer", "null"}, Minimum: float(lift.MinReps), Maximum: float(lift.MaxReps)},
			"weight":   {Types: []string{"number", "null"}, Maximum: float(lift.MaxWeight), Description: "pounds"},
		},
		Required: []string{"exercise", "sets", "reps", "weight"},
	}
}

func float(v float64) *float64 { return &v }

var schemaJSON = mustMarshal(Schema())

func mustMarshal(s *jsonschema.Schema) string {
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("extract: marshal lift schema: %v", err))
	}
	return string(b)
}

// Prompt is the fixed instruction followed by the user's raw text.
func Prompt(text string) string {
	return promptHead + schemaJSON + "\n\n" + promptExamples + text
}

const promptHead = `Parse this gym/workout log into structured data. The user may enter ONE or MULTIPLE lifts (comma or newline separated).
Return a JSON ARRAY of objects and nothing else. Each object has: exercise (string), sets (int), reps (int), weight (float, in lbs). Use null for unknown values.
Each element must match this JSON schema:
`

const promptExamples = `Single lift: [{"exercise": "Bench Press", "sets": 3, "reps": 5, "weight": 135}]
Multiple: [{"exercise": "Bench Press", "sets": 3, "reps": 5, "weight": 135}, {"exercise": "Squat", "sets": 3, "reps": 5, "weight": 225}]
Examples:
- "Bench 3x5 135, Squat 225x5" -> array of 2 objects
- "Deadlift 1x5 315" -> array of 1 object
- "Squat" -> [{"exercise": "Squat", "sets": null, "reps": null, "weight": null}]

User input: `
