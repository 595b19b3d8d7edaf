package rag

import (
	"fmt"
	"strings"
)

// Chunker 文档分块器
// 按句子边界聚合, 相邻分块之间保留重叠以减少截断语义。
type Chunker struct {
	ChunkSize    int // 分块大小(字符数)
	ChunkOverlap int // 重叠大小(字符数)
}

// NewChunker 创建分块器
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}

	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// ChunkResult 分块结果
type ChunkResult struct {
	Content    string
	ChunkIndex int // 从 0 开始
	TokenCount int // 近似值, 约 4 字符 1 token
}

// ChunkDocument 对文档内容分块
func (c *Chunker) ChunkDocument(content string) ([]*ChunkResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: 文档内容不能为空", ErrInvalidInput)
	}

	content = normalizeText(content)
	sentences := splitIntoSentences(content)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("%w: 文档没有有效句子", ErrInvalidInput)
	}

	chunks := make([]*ChunkResult, 0)
	current := ""
	index := 0

	for _, sentence := range sentences {
		// 超出分块大小则落盘当前块, 新块从重叠尾部开始
		if current != "" && len(current)+len(sentence)+1 > c.ChunkSize {
			chunks = append(chunks, c.newChunk(current, index))
			index++
			current = c.overlapTail(current)
		}

		if current != "" {
			current += " "
		}
		current += sentence
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, c.newChunk(current, index))
	}

	return chunks, nil
}

func (c *Chunker) newChunk(content string, index int) *ChunkResult {
	content = strings.TrimSpace(content)
	return &ChunkResult{
		Content:    content,
		ChunkIndex: index,
		TokenCount: estimateTokenCount(content),
	}
}

// overlapTail 取上一分块末尾的重叠文本, 尽量从完整单词开始
func (c *Chunker) overlapTail(text string) string {
	if c.ChunkOverlap == 0 || len(text) <= c.ChunkOverlap {
		return ""
	}

	tail := text[len(text)-c.ChunkOverlap:]
	if idx := strings.Index(tail, " "); idx > 0 {
		tail = tail[idx+1:]
	}

	return tail
}

// normalizeText 压缩空白
func normalizeText(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}

// splitIntoSentences 按句末标点切分
func splitIntoSentences(text string) []string {
	sentences := make([]string, 0)
	current := strings.Builder{}

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if r == '。' || r == '!' || r == '?' || r == '.' {
			// 小数点不算句末
			if r == '.' && i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9' {
				continue
			}

			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}

	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	return sentences
}

// estimateTokenCount 粗略估算 Token 数: 4 字符 ≈ 1 token, 向上取整
func estimateTokenCount(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
