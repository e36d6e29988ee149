// Package consolidate implements the Consolidator: given new facts and
// the semantically-neighboring existing memories the caller fetched, ask
// the LLM for a CREATE/UPDATE/DELETE/NOOP plan, and validate it against
// the temporary id map before the caller applies it.
package consolidate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/memoryvault/memoryvault/internal/errs"
	"github.com/memoryvault/memoryvault/internal/llmprovider"
	"github.com/memoryvault/memoryvault/internal/model"
	"github.com/memoryvault/memoryvault/internal/vectorstore"
)

const systemInstruction = `You are a Memory Manager. You are given a list of NEW_FACTS and the
EXISTING_MEMORIES (with id and text) that are most semantically similar to
them. Decide, for every existing memory that is contradicted, superseded,
or made redundant by a new fact, whether to UPDATE it with new text or
DELETE it; for every new fact not already covered by an existing memory,
emit a CREATE; for an existing memory that needs no change, you may omit
it or emit NOOP. Return strict JSON matching:
{"plan": [{"id": "...", "text": "...", "action": "CREATE|UPDATE|DELETE|NOOP", "old_text": "..."}]}
For CREATE, id is a fresh value not present in EXISTING_MEMORIES. For
UPDATE/DELETE/NOOP, id MUST be one of the existing memory ids given to you.
old_text is only meaningful for UPDATE.`

var planSchema = []byte(`{
	"type": "object",
	"properties": {
		"plan": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"text": {"type": "string"},
					"action": {"type": "string", "enum": ["CREATE", "UPDATE", "DELETE", "NOOP"]},
					"old_text": {"type": "string"}
				},
				"required": ["id", "text", "action"]
			}
		}
	},
	"required": ["plan"]
}`)

// Consolidator turns new facts plus their semantic neighbors into a
// validated plan.
type Consolidator struct {
	llm llmprovider.Provider
}

// New creates a Consolidator over the given LLM provider.
func New(llm llmprovider.Provider) *Consolidator {
	return &Consolidator{llm: llm}
}

type neighborView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Plan runs the consolidation algorithm: given the new facts and their
// neighbor memories (already deduplicated, already fetched via a single
// batched QueryBySimilarity call by the caller), it builds the
// EXISTING_MEMORIES view, invokes the LLM, and returns a validated plan.
// If neighbors is empty, it short-circuits to one CREATE per fact in
// input order without calling the LLM at all.
func (c *Consolidator) Plan(ctx context.Context, facts []string, neighbors []model.Memory) ([]model.ConsolidationPlanItem, error) {
	if len(neighbors) == 0 {
		items := make([]model.ConsolidationPlanItem, len(facts))
		for i, f := range facts {
			items[i] = model.ConsolidationPlanItem{ID: fmt.Sprintf("new-%d", i), Text: f, Action: model.ActionCreate}
		}
		return items, nil
	}

	views := make([]neighborView, len(neighbors))
	tempToReal := make(map[string]string, len(neighbors))
	for i, n := range neighbors {
		tempID := fmt.Sprint(i)
		views[i] = neighborView{ID: tempID, Text: n.Document}
		tempToReal[tempID] = n.ID
	}

	message := buildMessage(facts, views)
	raw, err := c.llm.Generate(ctx, systemInstruction, message, planSchema)
	if err != nil {
		return nil, err
	}

	var parsed model.ConsolidationPlan
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, errs.API_("failed to parse consolidation plan", err)
	}

	return validate(parsed.Plan, tempToReal), nil
}

func buildMessage(facts []string, neighbors []neighborView) string {
	var b strings.Builder
	b.WriteString("EXISTING_MEMORIES:\n")
	for _, n := range neighbors {
		fmt.Fprintf(&b, "- id=%s text=%q\n", n.ID, n.Text)
	}
	b.WriteString("\nNEW_FACTS:\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "- %q\n", f)
	}
	return b.String()
}

// validate drops (and the caller should log) any item whose action
// targets a temporary id not present in tempToReal, and rewrites the id
// of every surviving UPDATE/DELETE/NOOP item to the real memory id.
// CREATE items are exempt, their id is expected to be fresh.
func validate(items []model.ConsolidationPlanItem, tempToReal map[string]string) []model.ConsolidationPlanItem {
	out := make([]model.ConsolidationPlanItem, 0, len(items))
	for _, item := range items {
		if item.Action != model.ActionCreate {
			realID, ok := tempToReal[item.ID]
			if !ok {
				continue
			}
			item.ID = realID
		}
		out = append(out, item)
	}
	return out
}

// DeduplicateNeighbors merges neighbor groups returned per-query by
// QueryBySimilarity into one list, preserving first-seen order, so a
// memory matched by more than one new fact appears once in
// EXISTING_MEMORIES.
func DeduplicateNeighbors(groups [][]vectorstore.Scored) []model.Memory {
	seen := make(map[string]bool)
	var out []model.Memory
	for _, group := range groups {
		for _, s := range group {
			if seen[s.Memory.ID] {
				continue
			}
			seen[s.Memory.ID] = true
			out = append(out, s.Memory)
		}
	}
	return out
}
