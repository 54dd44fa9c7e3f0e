package model

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// TokenUsage Token 使用统计
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// 流式事件类型
// 事件只在流上存在，不单独落库；落库的是收尾后重组的助手消息
const (
	EventToken          = "token"
	EventReasoningToken = "reasoning-token"
	EventToolCall       = "tool-call"
	EventToolResult     = "tool-result"
	EventError          = "error"
	EventDone           = "done"
)

// StreamEvent 流式事件
type StreamEvent struct {
	Type      string      `json:"type"`
	Content   string      `json:"content,omitempty"`   // token / reasoning-token 的文本
	ID        string      `json:"id,omitempty"`        // tool-call / tool-result 的调用ID
	Name      string      `json:"name,omitempty"`      // 工具名
	Arguments string      `json:"arguments,omitempty"` // tool-call 的参数（JSON 文本）
	Result    string      `json:"result,omitempty"`    // tool-result 的结果文本
	Message   string      `json:"message,omitempty"`   // error 的提示文本
	Usage     *TokenUsage `json:"usage,omitempty"`     // done 附带的用量
}

// TokenEvent 构造 token 事件
func TokenEvent(content string) StreamEvent {
	return StreamEvent{Type: EventToken, Content: content}
}

// ReasoningTokenEvent 构造 reasoning-token 事件
func ReasoningTokenEvent(content string) StreamEvent {
	return StreamEvent{Type: EventReasoningToken, Content: content}
}

// ToolCallEvent 构造 tool-call 事件
func ToolCallEvent(id, name, arguments string) StreamEvent {
	return StreamEvent{Type: EventToolCall, ID: id, Name: name, Arguments: arguments}
}

// ToolResultEvent 构造 tool-result 事件
func ToolResultEvent(id, name, result string) StreamEvent {
	return StreamEvent{Type: EventToolResult, ID: id, Name: name, Result: result}
}

// ErrorEvent 构造 error 事件
// 对外只暴露统一的提示文本，不透出内部错误
func ErrorEvent() StreamEvent {
	return StreamEvent{Type: EventError, Message: "Oops, an error occurred!"}
}

// DoneEvent 构造 done 事件
func DoneEvent(usage *TokenUsage) StreamEvent {
	return StreamEvent{Type: EventDone, Usage: usage}
}
