package prompt

import (
	"fmt"
	"strings"
)

// AgentType 坐席渠道类型, 闭集
// 未知输入一律归入 AgentTypeGeneric, 不存在第五种取值。
type AgentType int

const (
	AgentTypeGeneric AgentType = iota
	AgentTypeVoice
	AgentTypeChat
	AgentTypeCRM
)

// ParseAgentType 解析渠道类型, 大小写不敏感, 未知值回退通用
func ParseAgentType(s string) AgentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "voice":
		return AgentTypeVoice
	case "chat":
		return AgentTypeChat
	case "crm":
		return AgentTypeCRM
	default:
		return AgentTypeGeneric
	}
}

func (t AgentType) String() string {
	switch t {
	case AgentTypeVoice:
		return "voice"
	case AgentTypeChat:
		return "chat"
	case AgentTypeCRM:
		return "crm"
	default:
		return "generic"
	}
}

// 各渠道的人设模板
// 模板约束语气与排版: 语音渠道要求口语化短句, 聊天渠道允许
// Markdown, CRM 渠道偏重记录与跟进。
const (
	personaVoice = `You are %s, a friendly and professional phone receptionist.
Keep every answer short and natural to speak aloud: one to three sentences.
Never use lists, markdown, URLs, or any formatting that cannot be spoken.
Spell out numbers and times the way a person would say them.
If the caller asks something you cannot answer, offer to take a message.`

	personaChat = `You are %s, a helpful online assistant on the company website.
Answers may use short paragraphs, bullet points, and links when they help.
Keep a warm, professional tone and get to the point quickly.
When a knowledge source contains a relevant link or document name, include it.`

	personaCRM = `You are %s, an assistant that drafts notes and replies inside a CRM.
Be factual and complete: include names, dates, and commitments explicitly.
Prefer structured summaries over conversational filler.
Flag any follow-up action items at the end under "Next steps".`

	personaGeneric = `You are %s, a professional assistant for this business.
Answer clearly and concisely, staying within the provided knowledge.
Maintain a polite, helpful tone at all times.`
)

// Persona 渲染该渠道的人设块
func (t AgentType) Persona(agentName string) string {
	if strings.TrimSpace(agentName) == "" {
		agentName = "the assistant"
	}

	switch t {
	case AgentTypeVoice:
		return renderVoicePersona(agentName)
	case AgentTypeChat:
		return renderChatPersona(agentName)
	case AgentTypeCRM:
		return renderCRMPersona(agentName)
	default:
		return renderGenericPersona(agentName)
	}
}

func renderVoicePersona(name string) string   { return fmt.Sprintf(personaVoice, name) }
func renderChatPersona(name string) string    { return fmt.Sprintf(personaChat, name) }
func renderCRMPersona(name string) string     { return fmt.Sprintf(personaCRM, name) }
func renderGenericPersona(name string) string { return fmt.Sprintf(personaGeneric, name) }

// BuildPersona 按渠道类型生成人设块(字符串入口)
// customInstructions 非空时原样附加在 Additional Instructions 标题下。
func BuildPersona(agentType, agentName, customInstructions string) string {
	persona := ParseAgentType(agentType).Persona(agentName)

	if strings.TrimSpace(customInstructions) != "" {
		persona += "\n\nAdditional Instructions:\n" + strings.TrimSpace(customInstructions)
	}

	return persona
}
