package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"backend/internal/rag"
)

func sampleResults() []*rag.SimilarityResult {
	return []*rag.SimilarityResult{
		{
			ChunkID:    "c1",
			DocumentID: "d1",
			ChunkIndex: 0,
			Content:    "We are open from 9am to 6pm on weekdays.",
			Similarity: 0.92,
			FileName:   "hours.txt",
			FileType:   "text/plain",
			UploadDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ChunkID:    "c2",
			DocumentID: "d1",
			ChunkIndex: 1,
			Content:    "Weekend appointments require a booking.",
			Similarity: 0.78,
			FileName:   "hours.txt",
			FileType:   "text/plain",
			UploadDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestBuildContext(t *testing.T) {
	t.Run("无结果返回拒答块", func(t *testing.T) {
		text := BuildContext(nil)
		require.Contains(t, text, "No relevant information was found")
		require.Contains(t, text, DeflectionPhrase)
	})

	t.Run("结果按传入顺序带来源标注", func(t *testing.T) {
		text := BuildContext(sampleResults())

		require.Contains(t, text, "[Source 1: hours.txt]")
		require.Contains(t, text, "[Source 2: hours.txt]")
		require.Contains(t, text, "Relevance: 92.0%")
		require.Contains(t, text, "Uploaded: 2026-03-01")
		require.Contains(t, text, "We are open from 9am to 6pm on weekdays.")

		// 结束的硬性规则
		require.Contains(t, text, "Answer ONLY from the sources above")
		require.Contains(t, text, DeflectionPhrase)

		// 第一条在第二条之前
		require.Less(t,
			strings.Index(text, "We are open"),
			strings.Index(text, "Weekend appointments"))
	})
}

func TestBuildPersona(t *testing.T) {
	t.Run("各渠道模板不同", func(t *testing.T) {
		voice := BuildPersona("voice", "Amy", "")
		chat := BuildPersona("chat", "Amy", "")
		crm := BuildPersona("crm", "Amy", "")

		require.Contains(t, voice, "phone receptionist")
		require.Contains(t, chat, "online assistant")
		require.Contains(t, crm, "CRM")
		require.NotEqual(t, voice, chat)
	})

	t.Run("未知类型回退通用模板", func(t *testing.T) {
		unknown := BuildPersona("billboard", "Amy", "")
		generic := BuildPersona("", "Amy", "")
		require.Equal(t, generic, unknown)
	})

	t.Run("附加自定义指令", func(t *testing.T) {
		persona := BuildPersona("chat", "Amy", "Always mention our loyalty program.")
		require.Contains(t, persona, "Additional Instructions:")
		require.Contains(t, persona, "Always mention our loyalty program.")
	})

	t.Run("空名称使用占位", func(t *testing.T) {
		persona := BuildPersona("chat", "", "")
		require.Contains(t, persona, "the assistant")
	})
}

func TestParseAgentType(t *testing.T) {
	cases := []struct {
		input string
		want  AgentType
	}{
		{"voice", AgentTypeVoice},
		{"Voice", AgentTypeVoice},
		{" CHAT ", AgentTypeChat},
		{"crm", AgentTypeCRM},
		{"generic", AgentTypeGeneric},
		{"billboard", AgentTypeGeneric},
		{"", AgentTypeGeneric},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, ParseAgentType(tc.input), "input=%q", tc.input)
	}
}

func TestAgentTypePersona(t *testing.T) {
	t.Run("类型化渲染与字符串入口一致", func(t *testing.T) {
		require.Equal(t, BuildPersona("voice", "Amy", ""), AgentTypeVoice.Persona("Amy"))
		require.Equal(t, BuildPersona("crm", "Amy", ""), AgentTypeCRM.Persona("Amy"))
	})

	t.Run("String往返", func(t *testing.T) {
		for _, at := range []AgentType{AgentTypeGeneric, AgentTypeVoice, AgentTypeChat, AgentTypeCRM} {
			require.Equal(t, at, ParseAgentType(at.String()))
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Run("固定顺序与分段长度", func(t *testing.T) {
		doc := BuildPrompt(&BuildOptions{
			SearchResults: sampleResults(),
			AgentType:     "chat",
			AgentName:     "Amy",
			History: []ConversationTurn{
				{Role: "user", Content: "Hi"},
				{Role: "assistant", Content: "Hello, how can I help?"},
			},
			Query: "When are you open?",
		})

		// 顺序: 前导 → 上下文 → 人设 → 历史 → 问题
		idxPreamble := strings.Index(doc.Text, "COMPLIANCE NOTICE:")
		idxContext := strings.Index(doc.Text, "KNOWLEDGE BASE CONTEXT:")
		idxPersona := strings.Index(doc.Text, "online assistant")
		idxHistory := strings.Index(doc.Text, "CONVERSATION HISTORY:")
		idxQuery := strings.Index(doc.Text, "USER QUESTION:")

		require.True(t, idxPreamble >= 0 && idxPreamble < idxContext)
		require.Less(t, idxContext, idxPersona)
		require.Less(t, idxPersona, idxHistory)
		require.Less(t, idxHistory, idxQuery)

		require.Contains(t, doc.Text, "user: Hi")
		require.Contains(t, doc.Text, "assistant: Hello, how can I help?")

		require.Equal(t, len(doc.Text), doc.Total)
		require.Greater(t, doc.Sections.Preamble, 0)
		require.Greater(t, doc.Sections.Context, 0)
		require.Greater(t, doc.Sections.Persona, 0)
		require.Greater(t, doc.Sections.History, 0)
		require.Greater(t, doc.Sections.Query, 0)
	})

	t.Run("历史与问题为空时整段省略", func(t *testing.T) {
		doc := BuildPrompt(&BuildOptions{
			SearchResults: sampleResults(),
			AgentType:     "voice",
			AgentName:     "Amy",
		})

		require.NotContains(t, doc.Text, "CONVERSATION HISTORY:")
		require.NotContains(t, doc.Text, "USER QUESTION:")
		require.Equal(t, 0, doc.Sections.History)
		require.Equal(t, 0, doc.Sections.Query)
	})

	t.Run("前导只初始化一次", func(t *testing.T) {
		first := compliancePreamble()
		second := compliancePreamble()
		require.Equal(t, first, second)
		require.Contains(t, first, "COMPLIANCE NOTICE:")
	})

	t.Run("nil选项不崩溃", func(t *testing.T) {
		doc := BuildPrompt(nil)
		require.NotEmpty(t, doc.Text)
		require.Contains(t, doc.Text, DeflectionPhrase)
	})
}

func TestBuildPromptWithAttribution(t *testing.T) {
	t.Run("来源与平均相似度", func(t *testing.T) {
		result := BuildPromptWithAttribution(&BuildOptions{
			SearchResults: sampleResults(),
			AgentType:     "chat",
			AgentName:     "Amy",
			Query:         "When are you open?",
		})

		require.Len(t, result.Sources, 2)
		require.Equal(t, "hours.txt", result.Sources[0].FileName)
		require.Equal(t, 0.92, result.Sources[0].Similarity)
		require.InDelta(t, 0.85, result.Attribution.AvgSimilarity, 1e-9)
		require.Equal(t, result.Total, len(result.Text))
	})

	t.Run("无来源时平均相似度为0", func(t *testing.T) {
		result := BuildPromptWithAttribution(&BuildOptions{Query: "anything"})
		require.Empty(t, result.Sources)
		require.Equal(t, 0.0, result.Attribution.AvgSimilarity)
	})
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("abcd"))
	require.Equal(t, 2, EstimateTokens("abcde"))
	require.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestCheckBudget(t *testing.T) {
	t.Run("在预算内", func(t *testing.T) {
		report := CheckBudget(strings.Repeat("x", 400), 200)
		require.True(t, report.WithinLimit)
		require.Equal(t, 100, report.Estimated)
		require.Equal(t, 200, report.Max)
		require.Equal(t, 0, report.Excess)
	})

	t.Run("超出预算报告差额", func(t *testing.T) {
		report := CheckBudget(strings.Repeat("x", 1000), 100)
		require.False(t, report.WithinLimit)
		require.Equal(t, 250, report.Estimated)
		require.Equal(t, 150, report.Excess)
	})

	t.Run("非法上限回退默认值", func(t *testing.T) {
		report := CheckBudget("text", 0)
		require.Equal(t, DefaultMaxTokens, report.Max)
		require.True(t, report.WithinLimit)
	})

	t.Run("只报告不截断", func(t *testing.T) {
		text := strings.Repeat("x", 1000)
		_ = CheckBudget(text, 10)
		require.Len(t, text, 1000)
	})
}

func TestCountTokens(t *testing.T) {
	count := CountTokens("Hello, how can I help you today?")
	require.Greater(t, count, 0)
	// 精确计数与估算应在同一数量级
	require.Less(t, count, len("Hello, how can I help you today?"))
}
