package model

// TurnRequest 一轮对话请求
// messages 携带完整的会话上下文，最新的 user 消息是本轮的触发内容
type TurnRequest struct {
	ConversationID string    `json:"conversation_id" binding:"required"`
	Messages       []Message `json:"messages" binding:"required"`
	SelectedModel  string    `json:"selected_model,omitempty"`
}

// 可选模型档位
const (
	ChatModel          = "chat-model"
	ChatModelReasoning = "chat-model-reasoning" // 推理档位，不启用工具
)

