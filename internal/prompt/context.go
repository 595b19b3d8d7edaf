package prompt

import (
	"fmt"
	"strings"

	"backend/internal/rag"
)

// DeflectionPhrase 知识不足时要求模型使用的固定回复
const DeflectionPhrase = "I don't have that information available right now, but I can take a message and have someone follow up with you."

// noContextBlock 检索无结果时的上下文块, 指示模型拒答而非编造
const noContextBlock = `KNOWLEDGE BASE CONTEXT:
No relevant information was found in the knowledge base for this query.

RULES:
1. Do NOT guess or invent an answer.
2. Respond with: "` + DeflectionPhrase + `"`

// BuildContext 把检索结果组装成带来源标注的上下文块
// 结果按传入顺序输出(调用方已按相似度排好序), 末尾附上
// 硬性引用规则。结果为空时返回固定的"未找到"块。
func BuildContext(results []*rag.SimilarityResult) string {
	if len(results) == 0 {
		return noContextBlock
	}

	var b strings.Builder
	b.WriteString("KNOWLEDGE BASE CONTEXT:\n")

	for i, r := range results {
		b.WriteString(fmt.Sprintf("\n[Source %d: %s]\n", i+1, r.FileName))
		b.WriteString(fmt.Sprintf("Type: %s | Uploaded: %s | Relevance: %.1f%%\n",
			r.FileType,
			r.UploadDate.Format("2006-01-02"),
			r.Similarity*100,
		))
		b.WriteString(r.Content)
		b.WriteString("\n")
	}

	b.WriteString(`
RULES:
1. Answer ONLY from the sources above.
2. Cite the source filename when you use it.
3. Never extrapolate beyond what the sources state.
4. If the sources do not cover the question, respond with: "` + DeflectionPhrase + `"`)

	return b.String()
}
