package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"lychee/internal/model"
)

// Generator 文档类工具依赖的文本生成能力
type Generator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
	StreamText(ctx context.Context, system, prompt string, onDelta func(delta string)) (string, error)
}

// Call 一次工具调用
type Call struct {
	ID        string
	Arguments string
	// Emit 透出工具执行过程中的中间事件 (如文档内容增量)
	Emit func(model.StreamEvent)
}

// Tool 会话工具
type Tool interface {
	Info() *schema.ToolInfo
	Execute(ctx context.Context, call Call) (string, error)
}

// Registry 工具注册表
// 按注册顺序对外提供工具描述，按名称分发调用
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register 注册工具，重名时直接覆盖
func (r *Registry) Register(t Tool) {
	name := t.Info().Name
	if _, ok := r.tools[name]; !ok {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Infos 按注册顺序返回全部工具描述
func (r *Registry) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.tools[name].Info())
	}
	return infos
}

// Call 执行指定工具
// 未注册的工具名与参数校验失败都以错误返回，由会话折叠为工具错误消息
func (r *Registry) Call(ctx context.Context, callID, name, arguments string, emit func(model.StreamEvent)) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return t.Execute(ctx, Call{ID: callID, Arguments: arguments, Emit: emit})
}
