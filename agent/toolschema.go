package agent

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/xaiconv/tools"
)

// BuildTools converts the tools of api into provider tool definitions, in
// order, using the API's schema serializer. A nil api means tool use is
// disabled and yields nil.
func BuildTools(api *tools.API) ([]openai.Tool, error) {
	if api == nil {
		return nil, nil
	}

	descriptors := api.Tools()
	defs := make([]openai.Tool, 0, len(descriptors))
	for _, meta := range descriptors {
		params, err := api.Serialize(meta)
		if err != nil {
			return nil, fmt.Errorf("serialize parameters of tool %s: %w", meta.Name, err)
		}
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        meta.Name,
				Description: meta.Description,
				Parameters:  params,
			},
		})
	}
	return defs, nil
}
