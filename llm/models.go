package llm

// Model IDs offered by xAI.
const (
	ModelGrok4                 = "grok-4"
	ModelGrok4Fast             = "grok-4-fast"
	ModelGrok4FastNonReasoning = "grok-4-fast-non-reasoning"
	ModelGrok4FastReasoning    = "grok-4-fast-reasoning"
	ModelGrokCodeFast          = "grok-code-fast-1"
	ModelGrok3                 = "grok-3"
	ModelGrok3Fast             = "grok-3-fast"
	ModelGrok3Mini             = "grok-3-mini"
	ModelGrok3MiniFast         = "grok-3-mini-fast"
	ModelGrok2Vision           = "grok-2-vision-1212"
)

// ModelInfo describes one chat model and its capabilities.
type ModelInfo struct {
	ID                string
	Name              string
	SupportsReasoning bool
}

// ModelTable maps model ids to their capabilities.
type ModelTable map[string]ModelInfo

// Lookup returns the model info and whether the model is known.
func (t ModelTable) Lookup(id string) (ModelInfo, bool) {
	info, ok := t[id]
	return info, ok
}

// SupportsReasoning reports whether the model accepts reasoning_effort.
// Unknown models do not.
func (t ModelTable) SupportsReasoning(id string) bool {
	info, ok := t[id]
	return ok && info.SupportsReasoning
}

// IDs returns the model ids in catalogue order.
func (t ModelTable) IDs() []string {
	ids := make([]string, 0, len(t))
	for _, info := range catalogue {
		if _, ok := t[info.ID]; ok {
			ids = append(ids, info.ID)
		}
	}
	return ids
}

// reasoning_effort is only accepted by the grok-3 mini models; grok-4
// reasons internally and rejects the parameter.
var catalogue = []ModelInfo{
	{ID: ModelGrok4, Name: "Grok 4"},
	{ID: ModelGrok4Fast, Name: "Grok 4 Fast"},
	{ID: ModelGrok4FastNonReasoning, Name: "Grok 4 Fast (non-reasoning)"},
	{ID: ModelGrok4FastReasoning, Name: "Grok 4 Fast (reasoning)"},
	{ID: ModelGrokCodeFast, Name: "Grok Code Fast"},
	{ID: ModelGrok3, Name: "Grok 3"},
	{ID: ModelGrok3Fast, Name: "Grok 3 Fast"},
	{ID: ModelGrok3Mini, Name: "Grok 3 Mini", SupportsReasoning: true},
	{ID: ModelGrok3MiniFast, Name: "Grok 3 Mini Fast", SupportsReasoning: true},
	{ID: ModelGrok2Vision, Name: "Grok 2 Vision"},
}

// Models returns the built-in model table.
func Models() ModelTable {
	table := make(ModelTable, len(catalogue))
	for _, info := range catalogue {
		table[info.ID] = info
	}
	return table
}
