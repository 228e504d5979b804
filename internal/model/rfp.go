package model

// RFPBreakdown 是 RFP 拆解阶段的结构化输出。
// questions_to_answer 中的每个问题都要求自包含（引用的章节内容已内联）、
// 以机构口吻表述且不合并相似问题——该契约由提示词约束。
type RFPBreakdown struct {
	CompanyName       string   `json:"company_name"`
	CompanyOverview   string   `json:"company_overview"`
	Objective         string   `json:"objective"`
	ScopeOfWork       string   `json:"scope_of_work"`
	QuestionsToAnswer []string `json:"questions_to_answer"`
}

// SMERecord 是专家名册中的一条静态记录，系统只读不改。
type SMERecord struct {
	FullName   string   `json:"full_name"`
	Role       string   `json:"role"`
	Department []string `json:"department"`
	Email      string   `json:"email"`
}

// ScoredChunk 是检索返回的一个上下文分块及其相似度得分。
type ScoredChunk struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	DocID  string  `json:"doc_id"`
	Score  float64 `json:"score"`
}

// 置信度分档：由检索得分均值映射而来，error 表示该问题生成失败。
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
	ConfidenceError  = "error"
)

// AnswerResult 是单个问题的 RAG 生成结果，生成后不再修改。
type AnswerResult struct {
	Question          string        `json:"question"`
	Answer            string        `json:"answer"`
	ContextChunks     []ScoredChunk `json:"context_chunks"`
	Sources           []string      `json:"sources"`
	Confidence        string        `json:"confidence"`
	AvgRelevanceScore float64       `json:"avg_relevance_score"`
	SME               *SMERecord    `json:"sme,omitempty"`
}

// RunMetadata 记录一次编排运行的统计信息。
type RunMetadata struct {
	StartTime         LocalTime `json:"start_time"`
	EndTime           LocalTime `json:"end_time"`
	ElapsedSeconds    float64   `json:"elapsed_seconds"`
	TotalQuestions    int       `json:"total_questions"`
	QuestionsAnswered int       `json:"questions_answered"`
}

// RFPRunResult 是编排器交给下游投递层的完整结果。
type RFPRunResult struct {
	Breakdown RFPBreakdown   `json:"breakdown"`
	Answers   []AnswerResult `json:"answers"`
	Metadata  RunMetadata    `json:"metadata"`
}
