package ai

import (
	"strings"
	"testing"
)

func TestSmootherWordBoundaries(t *testing.T) {
	var words []string
	s := NewSmoother(func(word string) {
		words = append(words, word)
	})

	// 模拟模型按 token 突发返回
	s.Write("Hel")
	s.Write("lo wor")
	s.Write("ld ag")
	s.Write("ain ")
	s.Flush()

	if got := strings.Join(words, ""); got != "Hello world again " {
		t.Fatalf("joined output = %q, want %q", got, "Hello world again ")
	}

	if len(words) < 3 {
		t.Fatalf("expected at least 3 words, got %d: %v", len(words), words)
	}
	if words[0] != "Hello " {
		t.Errorf("first word = %q, want %q", words[0], "Hello ")
	}
}

func TestSmootherHoldsPartialWord(t *testing.T) {
	var words []string
	s := NewSmoother(func(word string) {
		words = append(words, word)
	})

	s.Write("stream")
	if len(words) != 0 {
		t.Fatalf("partial word should be held, got %v", words)
	}

	s.Write("ing done")
	if len(words) != 1 || words[0] != "streaming " {
		t.Fatalf("words = %v, want [\"streaming \"]", words)
	}

	s.Flush()
	if got := strings.Join(words, ""); got != "streaming done" {
		t.Fatalf("joined output = %q, want %q", got, "streaming done")
	}
}

func TestSmootherPreservesCJKContent(t *testing.T) {
	var words []string
	s := NewSmoother(func(word string) {
		words = append(words, word)
	})

	input := "今天天气很好，我们一起去公园散步吧。"
	for _, r := range input {
		s.Write(string(r))
	}
	s.Flush()

	// 分词边界由词典决定，这里只验证内容无损
	if got := strings.Join(words, ""); got != input {
		t.Fatalf("joined output = %q, want %q", got, input)
	}
}

func TestSmootherEmptyFlush(t *testing.T) {
	called := false
	s := NewSmoother(func(string) {
		called = true
	})

	s.Flush()
	if called {
		t.Fatal("flush of empty buffer should not emit")
	}
}
