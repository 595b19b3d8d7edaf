package tasks

// Task Types
const (
	TypeProcessDocument = "knowledge:process_document"
)

// ProcessDocumentPayload 知识文档处理任务载荷
// 原始文本随任务传递, 处理器不再回源读取。
type ProcessDocumentPayload struct {
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
}
