package ai

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-ego/gse"
)

// cjkFlushThreshold 无空白 CJK 缓冲超过该 rune 数后按词切分下发
const cjkFlushThreshold = 8

var (
	segOnce   sync.Once
	segmenter *gse.Segmenter
)

// sharedSegmenter 懒加载全局分词器
// 初始化失败时返回 nil，平滑器降级为按空白切分
func sharedSegmenter() *gse.Segmenter {
	segOnce.Do(func() {
		seg, err := gse.New()
		if err != nil {
			segmenter = nil
			return
		}
		segmenter = &seg
	})
	return segmenter
}

// Smoother 词级流平滑器
// 模型按 token 突发返回，这里攒成完整词再下发，
// 英文按空白定界，CJK 连续文本用 gse 分词定界
type Smoother struct {
	emit func(word string)
	seg  *gse.Segmenter
	buf  strings.Builder
}

// NewSmoother 创建平滑器，emit 按词回调
func NewSmoother(emit func(word string)) *Smoother {
	return &Smoother{
		emit: emit,
		seg:  sharedSegmenter(),
	}
}

// Write 追加一段增量内容，下发其中已完整的词
func (s *Smoother) Write(chunk string) {
	if chunk == "" {
		return
	}
	s.buf.WriteString(chunk)
	s.drainStable()
}

// Flush 下发全部剩余缓冲
func (s *Smoother) Flush() {
	rest := s.buf.String()
	s.buf.Reset()
	if rest == "" {
		return
	}
	for _, word := range s.cut(rest) {
		s.emit(word)
	}
}

// drainStable 下发缓冲中边界已确定的部分
// 最后一个空白之前的内容视为稳定; 无空白的长 CJK 串按词切分，
// 保留最后一个词防止词被流切断
func (s *Smoother) drainStable() {
	text := s.buf.String()

	if idx := lastSpaceEnd(text); idx >= 0 {
		stable := text[:idx]
		pending := text[idx:]
		s.buf.Reset()
		s.buf.WriteString(pending)
		for _, word := range s.cut(stable) {
			s.emit(word)
		}
		text = pending
	}

	if hasCJK(text) && len([]rune(text)) > cjkFlushThreshold {
		words := s.cut(text)
		if len(words) > 1 {
			s.buf.Reset()
			s.buf.WriteString(words[len(words)-1])
			for _, word := range words[:len(words)-1] {
				s.emit(word)
			}
		}
	}
}

// cut 将文本切成词序列，空白附着在前一个词上
func (s *Smoother) cut(text string) []string {
	if text == "" {
		return nil
	}

	if s.seg != nil && hasCJK(text) {
		return s.seg.Cut(text, false)
	}

	var words []string
	var cur strings.Builder
	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			cur.WriteRune(r)
			inSpace = true
			continue
		}
		if inSpace {
			words = append(words, cur.String())
			cur.Reset()
			inSpace = false
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

// lastSpaceEnd 返回最后一个空白字符结束处的字节下标，不存在时返回 -1
func lastSpaceEnd(text string) int {
	last := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			last = i + utf8.RuneLen(r)
		}
	}
	return last
}

// hasCJK 判断文本中是否含有 CJK 字符
func hasCJK(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
