// Package rfp 实现了 RFP 问答流水线：拆解、专家指派、RAG 生成答案与编排。
package rfp

import (
	"context"
	"encoding/json"
	"fmt"

	"rfp-launchpad-go/internal/model"
	"rfp-launchpad-go/pkg/llm"
	"rfp-launchpad-go/pkg/log"
)

// breakdownSchema 是拆解阶段的严格输出约束：
// 所有字段必填且不允许额外字段，保证响应可直接解析。
var breakdownSchema = llm.Schema{
	Name: "rfp_breakdown",
	Schema: json.RawMessage(`{
		"type": "object",
		"additionalProperties": false,
		"required": ["company_name", "company_overview", "objective", "scope_of_work", "questions_to_answer"],
		"properties": {
			"company_name": {"type": "string"},
			"company_overview": {"type": "string"},
			"objective": {"type": "string"},
			"scope_of_work": {"type": "string"},
			"questions_to_answer": {
				"type": "array",
				"items": {"type": "string"}
			}
		}
	}`),
}

const breakdownSystemPrompt = `You are an expert RFP analyst. You will be given the full text of a Request for Proposals (RFP). Extract a structured breakdown of the document.

Rules for questions_to_answer — these are non-negotiable:
1. Every question must be FULLY SELF-CONTAINED. If a requirement references another section of the RFP (e.g. "see Section 3.1 for required services"), you must resolve the reference by inlining that section's actual content into the question text. Never emit a question that points the reader to a section number.
2. Phrase every question in agency-attributed, vendor-neutral form: refer to "The Agency" (or the issuing organization's generic role) rather than the client's name, and never assume a specific vendor.
3. One issue per question. Never merge semantically similar questions into one; emit them separately even if they overlap.

Extract every requirement, question, and deliverable the RFP asks vendors to respond to.`

// BreakdownStage 把 RFP 全文拆解为结构化的概要和待回答问题清单。
type BreakdownStage struct {
	llmClient llm.Client
}

// NewBreakdownStage 创建一个新的 BreakdownStage 实例。
func NewBreakdownStage(llmClient llm.Client) *BreakdownStage {
	return &BreakdownStage{llmClient: llmClient}
}

// Breakdown 调用生成模型做结构化拆解。
// 模型输出不符合 schema 时返回 llm.ErrSchemaViolation，不重试、不接受半解析结果。
func (s *BreakdownStage) Breakdown(ctx context.Context, rfpText string) (*model.RFPBreakdown, error) {
	log.Infof("[Breakdown] 开始拆解RFP文档, 文本长度: %d", len(rfpText))

	var breakdown model.RFPBreakdown
	userPrompt := fmt.Sprintf("Here is the full RFP text:\n\n%s", rfpText)
	if err := s.llmClient.CompleteJSON(ctx, breakdownSystemPrompt, userPrompt, breakdownSchema, &breakdown); err != nil {
		log.Errorf("[Breakdown] RFP拆解失败, Error: %v", err)
		return nil, fmt.Errorf("RFP拆解失败: %w", err)
	}

	log.Infof("[Breakdown] 拆解完成, 公司: %s, 提取问题数: %d", breakdown.CompanyName, len(breakdown.QuestionsToAnswer))
	return &breakdown, nil
}
