package prompt

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultMaxTokens 组装后 Prompt 的默认预算上限(估算单位)
const DefaultMaxTokens = 128000

// EstimateTokens 粗略估算 Token 数: 4 字符 ≈ 1 token, 向上取整
// 只是估算值, 不等于下游模型分词器的精确计数。
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// BudgetReport 预算检查结果
type BudgetReport struct {
	WithinLimit bool `json:"withinLimit"`
	Estimated   int  `json:"estimated"`
	Max         int  `json:"max"`
	Excess      int  `json:"excess,omitempty"`
}

// CheckBudget 对比估算值与上限, 只报告不截断
func CheckBudget(text string, maxTokens int) *BudgetReport {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	estimated := EstimateTokens(text)
	report := &BudgetReport{
		WithinLimit: estimated <= maxTokens,
		Estimated:   estimated,
		Max:         maxTokens,
	}
	if !report.WithinLimit {
		report.Excess = estimated - maxTokens
	}

	return report
}

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

// CountTokens 用 tiktoken 精确计数, 编码表不可用时回退到估算
func CountTokens(text string) int {
	tokenizerOnce.Do(func() {
		// cl100k_base 覆盖 embedding 与主流 chat 模型
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tokenizer = enc
		}
	})

	if tokenizer == nil {
		return EstimateTokens(text)
	}

	return len(tokenizer.Encode(text, nil, nil))
}
