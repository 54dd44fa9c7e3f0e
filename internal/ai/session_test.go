package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"lychee/internal/config"
	"lychee/internal/model"
)

// fakeChatModel 按调用顺序回放预置流的模型替身
type fakeChatModel struct {
	streams []func() (*schema.StreamReader[*schema.Message], error)
	calls   int
	bound   []*schema.ToolInfo
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	return nil, errors.New("not implemented")
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	idx := m.calls
	m.calls++
	if idx >= len(m.streams) {
		idx = len(m.streams) - 1
	}
	return m.streams[idx]()
}

func (m *fakeChatModel) BindTools(tools []*schema.ToolInfo) error {
	m.bound = tools
	return nil
}

// fakeToolSet 工具集替身
type fakeToolSet struct {
	out   string
	err   error
	calls int
}

func (f *fakeToolSet) Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{{Name: "ping"}}
}

func (f *fakeToolSet) Call(ctx context.Context, callID, name, arguments string, emit func(model.StreamEvent)) (string, error) {
	f.calls++
	return f.out, f.err
}

func textStream(content string) func() (*schema.StreamReader[*schema.Message], error) {
	return func() (*schema.StreamReader[*schema.Message], error) {
		return schema.StreamReaderFromArray([]*schema.Message{
			{Role: schema.Assistant, Content: content},
		}), nil
	}
}

func toolCallStream(callID, name string) func() (*schema.StreamReader[*schema.Message], error) {
	return func() (*schema.StreamReader[*schema.Message], error) {
		return schema.StreamReaderFromArray([]*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{ID: callID, Function: schema.FunctionCall{Name: name, Arguments: "{}"}},
				},
			},
		}), nil
	}
}

func collectEvents() (func(model.StreamEvent), *[]model.StreamEvent) {
	var events []model.StreamEvent
	return func(ev model.StreamEvent) { events = append(events, ev) }, &events
}

func userHistory() []model.Message {
	return []model.Message{{Role: model.RoleUser, Content: "hi"}}
}

func TestSessionToolErrorContinues(t *testing.T) {
	chatModel := &fakeChatModel{streams: []func() (*schema.StreamReader[*schema.Message], error){
		toolCallStream("c1", "ping"),
		textStream("All done"),
	}}
	toolSet := &fakeToolSet{err: errors.New("boom")}
	s := &Session{chatModel: chatModel, toolSet: toolSet, maxSteps: 5}

	emit, events := collectEvents()
	result, err := s.Run(context.Background(), userHistory(), emit)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if chatModel.calls != 2 {
		t.Errorf("model calls = %d, want 2 (tool failure must not abort the loop)", chatModel.calls)
	}

	var toolResult *model.StreamEvent
	for i := range *events {
		if (*events)[i].Type == model.EventToolResult {
			toolResult = &(*events)[i]
		}
	}
	if toolResult == nil {
		t.Fatal("no tool-result event emitted")
	}
	if toolResult.Result != "Error: boom" {
		t.Errorf("tool result = %q, want folded error message", toolResult.Result)
	}

	var toolMsg, final string
	for _, m := range result.Messages {
		switch m.Role {
		case model.RoleTool:
			toolMsg = m.Content
		case model.RoleAssistant:
			final = m.Content
		}
	}
	if toolMsg != "Error: boom" {
		t.Errorf("tool message = %q, want folded error message", toolMsg)
	}
	if final != "All done" {
		t.Errorf("final assistant content = %q, want %q", final, "All done")
	}
}

func TestSessionMaxSteps(t *testing.T) {
	// 模型每步都要求调用工具，循环应在步数上限处停止
	chatModel := &fakeChatModel{streams: []func() (*schema.StreamReader[*schema.Message], error){
		toolCallStream("c1", "ping"),
	}}
	toolSet := &fakeToolSet{out: "pong"}
	s := &Session{chatModel: chatModel, toolSet: toolSet, maxSteps: 2}

	emit, _ := collectEvents()
	result, err := s.Run(context.Background(), userHistory(), emit)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if chatModel.calls != 2 {
		t.Errorf("model calls = %d, want 2", chatModel.calls)
	}
	if toolSet.calls != 2 {
		t.Errorf("tool calls = %d, want 2", toolSet.calls)
	}
	if result == nil {
		t.Fatal("result should not be nil at the step cap")
	}
}

func TestSessionDeadlineBeforeStream(t *testing.T) {
	// 第二步开流时超时: 视为正常完成，保留第一步产物
	chatModel := &fakeChatModel{streams: []func() (*schema.StreamReader[*schema.Message], error){
		toolCallStream("c1", "ping"),
		func() (*schema.StreamReader[*schema.Message], error) {
			return nil, context.DeadlineExceeded
		},
	}}
	toolSet := &fakeToolSet{out: "pong"}
	s := &Session{chatModel: chatModel, toolSet: toolSet, maxSteps: 5}

	emit, _ := collectEvents()
	result, err := s.Run(context.Background(), userHistory(), emit)
	if err != nil {
		t.Fatalf("Run returned error: %v, deadline must read as completion", err)
	}

	var toolMsg string
	for _, m := range result.Messages {
		if m.Role == model.RoleTool {
			toolMsg = m.Content
		}
	}
	if toolMsg != "pong" {
		t.Errorf("tool message = %q, first step outcome must survive the timeout", toolMsg)
	}
}

func TestSessionDeadlineMidStream(t *testing.T) {
	// 流中途超时: 已收到的内容照常透出并保留
	chatModel := &fakeChatModel{streams: []func() (*schema.StreamReader[*schema.Message], error){
		func() (*schema.StreamReader[*schema.Message], error) {
			sr, sw := schema.Pipe[*schema.Message](2)
			sw.Send(&schema.Message{Role: schema.Assistant, Content: "partial answer"}, nil)
			sw.Send(nil, context.DeadlineExceeded)
			sw.Close()
			return sr, nil
		},
	}}
	s := &Session{chatModel: chatModel, maxSteps: 5}

	emit, events := collectEvents()
	result, err := s.Run(context.Background(), userHistory(), emit)
	if err != nil {
		t.Fatalf("Run returned error: %v, deadline must read as completion", err)
	}

	if len(result.Messages) != 1 || result.Messages[0].Content != "partial answer" {
		t.Fatalf("messages = %+v, want the partial assistant content kept", result.Messages)
	}

	var streamed strings.Builder
	for _, ev := range *events {
		if ev.Type == model.EventToken {
			streamed.WriteString(ev.Content)
		}
	}
	if streamed.String() != "partial answer" {
		t.Errorf("streamed tokens = %q, want %q", streamed.String(), "partial answer")
	}
}

func TestNewSessionModelSelection(t *testing.T) {
	reasoning := &fakeChatModel{}
	util := &fakeChatModel{}
	chat := &fakeChatModel{}
	toolSet := &fakeToolSet{}
	cfg := &config.ChatConfig{MaxSteps: 5}

	t.Run("reasoning variant runs without tools", func(t *testing.T) {
		c := &Client{chatModel: chat, reasoningModel: reasoning, utilModel: util, toolSet: toolSet}
		s := c.NewSession(model.ChatModelReasoning, cfg)
		if s.chatModel != einomodel.ChatModel(reasoning) {
			t.Error("reasoning session should use the reasoning model")
		}
		if s.toolSet != nil {
			t.Error("reasoning session must not carry a tool set")
		}
	})

	t.Run("reasoning falls back to unbound model", func(t *testing.T) {
		c := &Client{chatModel: chat, utilModel: util, toolSet: toolSet}
		s := c.NewSession(model.ChatModelReasoning, cfg)
		if s.chatModel != einomodel.ChatModel(util) {
			t.Error("fallback session should use the unbound utility model")
		}
		if s.toolSet != nil {
			t.Error("fallback session must not carry a tool set")
		}
	})

	t.Run("default variant carries tools", func(t *testing.T) {
		c := &Client{chatModel: chat, reasoningModel: reasoning, utilModel: util, toolSet: toolSet}
		s := c.NewSession(model.ChatModel, cfg)
		if s.chatModel != einomodel.ChatModel(chat) {
			t.Error("default session should use the main chat model")
		}
		if s.toolSet == nil {
			t.Error("default session should carry the tool set")
		}
	})

	t.Run("non-positive step budget clamps to one", func(t *testing.T) {
		c := &Client{chatModel: chat, utilModel: util}
		s := c.NewSession(model.ChatModel, &config.ChatConfig{})
		if s.maxSteps != 1 {
			t.Errorf("maxSteps = %d, want 1", s.maxSteps)
		}
	})
}
