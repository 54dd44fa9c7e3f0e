package model

import (
	"strings"
	"time"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Conversation 对话实体
// ID 由客户端生成（UUID），首轮消息到达时懒创建；owner 唯一且不可变
type Conversation struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Title     string    `bson:"title" json:"title"`
	Model     string    `bson:"model,omitempty" json:"model,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Message 消息实体
// 入站的用户消息在生成开始前落库，助手消息在整条流收尾后落库
type Message struct {
	ID             string       `bson:"_id,omitempty" json:"id,omitempty"`
	ConversationID string       `bson:"conversation_id,omitempty" json:"conversation_id,omitempty"`
	Role           string       `bson:"role" json:"role"`
	Content        string       `bson:"content" json:"content"`
	Attachments    []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CreatedAt      time.Time    `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// Attachment 附件引用
// 文件本体由 Blob 存储持有，这里只保存 URL 引用
type Attachment struct {
	URL         string `bson:"url" json:"url"`
	Name        string `bson:"name,omitempty" json:"name,omitempty"`
	ContentType string `bson:"content_type" json:"content_type"`
}

// IsPDF 判断附件是否为 PDF 文档
func (a Attachment) IsPDF() bool {
	return a.ContentType == "application/pdf"
}

// IsImage 判断附件是否为图片
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

// 文档类型
const (
	DocumentKindText = "text"
	DocumentKindCode = "code"
)

// Document 文档实体（createDocument / updateDocument 工具产物）
type Document struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Title     string    `bson:"title" json:"title"`
	Content   string    `bson:"content" json:"content"`
	Kind      string    `bson:"kind" json:"kind"` // text, code
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Suggestion 修改建议实体（requestSuggestions 工具产物）
type Suggestion struct {
	ID            string    `bson:"_id" json:"id"`
	DocumentID    string    `bson:"document_id" json:"document_id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	OriginalText  string    `bson:"original_text" json:"original_text"`
	SuggestedText string    `bson:"suggested_text" json:"suggested_text"`
	Description   string    `bson:"description,omitempty" json:"description,omitempty"`
	IsResolved    bool      `bson:"is_resolved" json:"is_resolved"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
