package agent

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/conversation"
	"github.com/richinex/xaiconv/llm"
	"github.com/richinex/xaiconv/tools"
)

func newTestAgent(p llm.Provider, opts config.Options) *Agent {
	return NewBuilder(p).Options(opts).Build()
}

func kitchenAPI(t *testing.T) (*tools.API, *tools.DeviceStore) {
	t.Helper()
	store, err := tools.NewDeviceStore([]tools.Device{
		{EntityID: "light.kitchen", Name: "Kitchen Light", State: "off"},
	})
	require.NoError(t, err)
	api, err := tools.NewAssistAPI(config.AssistAPI, store)
	require.NoError(t, err)
	return api, store
}

func TestHandleChatLogSingleIteration(t *testing.T) {
	p := &fakeProvider{scripts: [][]openai.ChatCompletionStreamResponse{
		{roleChunk(), textChunk("4"), usageChunk(12, 1)},
	}}
	rec := &recorder{}
	log := conversation.NewLog("conv-1", conversation.WithListener(rec))
	log.SetSystemPrompt("be brief")
	log.AddUser("What's 2+2?")

	usage, err := newTestAgent(p, config.RecommendedConversationOptions()).HandleChatLog(context.Background(), log)
	require.NoError(t, err)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, config.RecommendedDefaults().ChatModel, req.Model)
	assert.Equal(t, "conv-1", req.User)
	assert.Nil(t, req.Tools)
	assert.False(t, req.Store)
	require.NotNil(t, req.StreamOptions)
	assert.True(t, req.StreamOptions.IncludeUsage)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)

	assert.Equal(t, []conversation.DeltaKind{
		conversation.DeltaRole,
		conversation.DeltaText,
		conversation.DeltaTerminal,
	}, rec.kinds())
	assert.True(t, p.streams[0].closed)

	require.NotNil(t, usage)
	assert.Equal(t, 12, *usage.InputTokens)
	assert.Equal(t, 1, *usage.OutputTokens)

	last, ok := log.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "4", last.Content)
}

func TestHandleChatLogEndToEnd(t *testing.T) {
	// A single content chunk with no role marker.
	p := &fakeProvider{scripts: [][]openai.ChatCompletionStreamResponse{{textChunk("4")}}}
	rec := &recorder{}
	log := conversation.NewLog("", conversation.WithListener(rec))
	log.AddUser("What's 2+2?")

	_, err := newTestAgent(p, config.Options{}).HandleChatLog(context.Background(), log)
	require.NoError(t, err)

	var texts []string
	for _, d := range rec.deltas {
		if d.Kind == conversation.DeltaText {
			texts = append(texts, d.Text)
		}
	}
	assert.Equal(t, []string{"4"}, texts)

	last := rec.deltas[len(rec.deltas)-1]
	assert.Equal(t, conversation.DeltaTerminal, last.Kind)
	require.NotNil(t, last.Native)
	assert.Equal(t, "4", last.Native.Content)
}

func TestHandleChatLogRunsToolsAndLoops(t *testing.T) {
	p := &fakeProvider{scripts: [][]openai.ChatCompletionStreamResponse{
		{roleChunk(), toolCallChunk(call("call-1", "set_state", `{"entity_id":"light.kitchen","state":"on"}`)), usageChunk(30, 8)},
		{roleChunk(), textChunk("The kitchen light is on."), usageChunk(50, 6)},
	}}
	api, store := kitchenAPI(t)
	rec := &recorder{}
	log := conversation.NewLog("conv-2", conversation.WithToolAPI(api), conversation.WithListener(rec))
	log.AddUser("turn on the kitchen light")

	usage, err := newTestAgent(p, config.RecommendedConversationOptions()).HandleChatLog(context.Background(), log)
	require.NoError(t, err)
	require.Len(t, p.requests, 2)

	first := p.requests[0]
	require.Len(t, first.Tools, 3)
	assert.Equal(t, "list_devices", first.Tools[0].Function.Name)
	assert.Equal(t, true, first.ParallelToolCalls)

	second := p.requests[1].Messages
	toolMsg := second[len(second)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, toolMsg.Role)
	assert.Equal(t, "call-1", toolMsg.ToolCallID)
	assert.JSONEq(t, `{"entity_id":"light.kitchen","name":"Kitchen Light","state":"on","success":true}`, toolMsg.Content)

	d, err := store.Get("light.kitchen")
	require.NoError(t, err)
	assert.Equal(t, "on", d.State)

	progress := 0
	for _, d := range rec.deltas {
		if d.Kind == conversation.DeltaProgress {
			progress++
			assert.Equal(t, config.ProgressMessage, d.Text)
		}
	}
	assert.Equal(t, 1, progress)

	require.NotNil(t, usage)
	assert.Equal(t, 80, *usage.InputTokens)
	assert.Equal(t, 14, *usage.OutputTokens)
}

func TestHandleChatLogStopsAfterSixIterations(t *testing.T) {
	p := &fakeProvider{scripts: [][]openai.ChatCompletionStreamResponse{
		{roleChunk(), toolCallChunk(call("call-1", "get_state", `{}`))},
	}}
	log := &stuckLog{items: []conversation.Item{conversation.User{Content: "loop"}}}

	_, err := newTestAgent(p, config.Options{}).HandleChatLog(context.Background(), log)
	require.ErrorIs(t, err, ErrTooManyToolIterations)
	assert.Len(t, p.requests, MaxToolIterations)

	progress := 0
	for _, d := range log.deltas {
		if d.Kind == conversation.DeltaProgress {
			progress++
		}
	}
	assert.Equal(t, 1, progress, "progress notice is sent once per turn")
}

func TestHandleChatLogNoProgressWhenTextStreamed(t *testing.T) {
	p := &fakeProvider{scripts: [][]openai.ChatCompletionStreamResponse{
		{roleChunk(), textChunk("checking"), toolCallChunk(call("call-1", "list_devices", ""))},
		{roleChunk(), textChunk("done")},
	}}
	api, _ := kitchenAPI(t)
	rec := &recorder{}
	log := conversation.NewLog("", conversation.WithToolAPI(api), conversation.WithListener(rec))
	log.AddUser("what devices are there")

	_, err := newTestAgent(p, config.Options{}).HandleChatLog(context.Background(), log)
	require.NoError(t, err)
	assert.NotContains(t, rec.kinds(), conversation.DeltaProgress)
}

func TestHandleChatLogEmptyStream(t *testing.T) {
	p := &fakeProvider{scripts: [][]openai.ChatCompletionStreamResponse{{}}}
	rec := &recorder{}
	log := conversation.NewLog("", conversation.WithListener(rec))
	log.AddUser("hello")

	_, err := newTestAgent(p, config.Options{}).HandleChatLog(context.Background(), log)
	require.ErrorIs(t, err, ErrEmptyStream)
	assert.Empty(t, rec.deltas)
}

func TestHandleChatLogTransportFailure(t *testing.T) {
	boom := errors.New("connection reset")
	p := &fakeProvider{
		scripts: [][]openai.ChatCompletionStreamResponse{{roleChunk(), textChunk("partial")}},
		recvErr: boom,
	}
	rec := &recorder{}
	log := conversation.NewLog("", conversation.WithListener(rec))
	log.AddUser("hello")

	_, err := newTestAgent(p, config.Options{}).HandleChatLog(context.Background(), log)
	require.ErrorIs(t, err, boom)
	assert.Len(t, p.requests, 1, "transport failures are not retried")
	assert.NotContains(t, rec.kinds(), conversation.DeltaTerminal)
	assert.Equal(t, []conversation.DeltaKind{conversation.DeltaRole, conversation.DeltaText}, rec.kinds())
}

func TestHandleChatLogCreateStreamFailure(t *testing.T) {
	boom := errors.New("401 unauthorized")
	p := &fakeProvider{err: boom}
	log := conversation.NewLog("")
	log.AddUser("hello")

	_, err := newTestAgent(p, config.Options{}).HandleChatLog(context.Background(), log)
	require.ErrorIs(t, err, boom)
}

func TestHandleChatLogAttachmentError(t *testing.T) {
	p := &fakeProvider{scripts: [][]openai.ChatCompletionStreamResponse{{textChunk("x")}}}
	log := conversation.NewLog("")
	log.AddUser("look", conversation.Attachment{Path: "/does/not/exist.png"})

	_, err := newTestAgent(p, config.Options{}).HandleChatLog(context.Background(), log)
	require.ErrorIs(t, err, conversation.ErrAttachmentNotFound)
	assert.Empty(t, p.requests)
}

func TestHandleChatLogForwardsSearchParameters(t *testing.T) {
	p := &fakeProvider{scripts: [][]openai.ChatCompletionStreamResponse{{textChunk("ok")}}}
	log := conversation.NewLog("")
	log.AddUser("news?")

	opts := config.Options{LiveSearch: config.Bool(true), MaxSearchResults: config.Int(5)}
	_, err := newTestAgent(p, opts).HandleChatLog(context.Background(), log)
	require.NoError(t, err)

	require.Len(t, p.opts, 1)
	require.NotNil(t, p.opts[0].Search)
	assert.Equal(t, llm.SearchOn, p.opts[0].Search.Mode)
	assert.Equal(t, 5, *p.opts[0].Search.MaxSearchResults)
}
