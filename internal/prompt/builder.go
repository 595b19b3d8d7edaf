package prompt

import (
	"strings"
	"sync"

	"backend/internal/rag"
)

// compliancePreambleText 合规前导, 进程生命周期内不变
const compliancePreambleText = `COMPLIANCE NOTICE:
You are an AI assistant acting on behalf of a business. You must:
- Never claim to be a human being.
- Never collect payment card numbers, passwords, or government ID numbers.
- Never provide medical, legal, or financial advice; refer such questions to a qualified professional.
- Disclose that the conversation may be recorded if the caller asks.
- Comply with applicable consumer-protection and privacy regulations at all times.`

var (
	preambleOnce sync.Once
	preamble     string
)

// compliancePreamble 返回缓存的合规前导
// 首次调用后不再重新生成; 并发下重复初始化也无害(幂等)。
func compliancePreamble() string {
	preambleOnce.Do(func() {
		preamble = compliancePreambleText
	})
	return preamble
}

// ConversationTurn 历史对话中的一轮
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildOptions Prompt 组装选项
type BuildOptions struct {
	SearchResults      []*rag.SimilarityResult `json:"searchResults"`
	AgentType          string                  `json:"agentType"`
	AgentName          string                  `json:"agentName"`
	CustomInstructions string                  `json:"customInstructions"`
	History            []ConversationTurn      `json:"history"`
	Query              string                  `json:"query"`
}

// SectionLengths 各段字符数
type SectionLengths struct {
	Preamble int `json:"preamble"`
	Context  int `json:"context"`
	Persona  int `json:"persona"`
	History  int `json:"history"`
	Query    int `json:"query"`
}

// PromptDocument 组装结果, 仅在单次请求内存在, 不落库
type PromptDocument struct {
	Text     string         `json:"text"`
	Sections SectionLengths `json:"sections"`
	Total    int            `json:"total"`
}

// SourceAttribution 单条来源归属
type SourceAttribution struct {
	FileName   string  `json:"fileName"`
	DocumentID string  `json:"documentId"`
	ChunkIndex int     `json:"chunkIndex"`
	Similarity float64 `json:"similarity"`
}

// Attribution 汇总归属信息
type Attribution struct {
	AvgSimilarity float64 `json:"avgSimilarity"`
}

// AttributedPrompt 带来源归属的组装结果
type AttributedPrompt struct {
	PromptDocument
	Sources     []SourceAttribution `json:"sources"`
	Attribution Attribution         `json:"attribution"`
}

// BuildPrompt 按固定顺序组装 Prompt
// 顺序: 合规前导 → 知识上下文 → 人设 → 历史对话 → 用户问题。
// 历史与问题为空时整段省略, 其余段始终存在。
func BuildPrompt(opts *BuildOptions) *PromptDocument {
	if opts == nil {
		opts = &BuildOptions{}
	}

	preambleSection := compliancePreamble()
	contextSection := BuildContext(opts.SearchResults)
	personaSection := BuildPersona(opts.AgentType, opts.AgentName, opts.CustomInstructions)
	historySection := buildHistory(opts.History)
	querySection := buildQuery(opts.Query)

	sections := []string{preambleSection, contextSection, personaSection}
	if historySection != "" {
		sections = append(sections, historySection)
	}
	if querySection != "" {
		sections = append(sections, querySection)
	}

	text := strings.Join(sections, "\n\n")

	return &PromptDocument{
		Text: text,
		Sections: SectionLengths{
			Preamble: len(preambleSection),
			Context:  len(contextSection),
			Persona:  len(personaSection),
			History:  len(historySection),
			Query:    len(querySection),
		},
		Total: len(text),
	}
}

// BuildPromptWithAttribution 组装 Prompt 并附带来源归属
// avgSimilarity 是各来源相似度的算术平均, 无来源时为 0。
func BuildPromptWithAttribution(opts *BuildOptions) *AttributedPrompt {
	doc := BuildPrompt(opts)

	var results []*rag.SimilarityResult
	if opts != nil {
		results = opts.SearchResults
	}

	sources := make([]SourceAttribution, 0, len(results))
	sum := 0.0
	for _, r := range results {
		sources = append(sources, SourceAttribution{
			FileName:   r.FileName,
			DocumentID: r.DocumentID,
			ChunkIndex: r.ChunkIndex,
			Similarity: r.Similarity,
		})
		sum += r.Similarity
	}

	avg := 0.0
	if len(sources) > 0 {
		avg = sum / float64(len(sources))
	}

	return &AttributedPrompt{
		PromptDocument: *doc,
		Sources:        sources,
		Attribution:    Attribution{AvgSimilarity: avg},
	}
}

// buildHistory 渲染历史对话块, 每轮一行 "role: content"
func buildHistory(history []ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("CONVERSATION HISTORY:\n")
	for _, turn := range history {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// buildQuery 渲染用户问题块
func buildQuery(query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}
	return "USER QUESTION:\n" + strings.TrimSpace(query)
}
