package rfp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/internal/model"
	"rfp-launchpad-go/pkg/llm"
	"rfp-launchpad-go/pkg/log"
)

// ErrInvalidSelection 表示模型返回的专家序号越界。
// 越界就报错，绝不静默截断到边界值。
var ErrInvalidSelection = errors.New("sme selection index out of range")

// ErrEmptyRoster 表示配置里没有任何专家记录。
var ErrEmptyRoster = errors.New("sme roster is empty")

// smeSelectionSchema 把模型约束为只返回一个整数序号。
var smeSelectionSchema = llm.Schema{
	Name: "sme_selection",
	Schema: json.RawMessage(`{
		"type": "object",
		"additionalProperties": false,
		"required": ["sme_index"],
		"properties": {
			"sme_index": {"type": "integer"}
		}
	}`),
}

// SMEIdentifier 用"生成即分类"的方式为每个问题指派专家：
// 把固定名册连同序号交给模型，要求其返回唯一的序号。
// 名册来自配置，系统只读不改。
type SMEIdentifier struct {
	llmClient llm.Client
	roster    []model.SMERecord
}

// NewSMEIdentifier 从配置的专家名册创建一个 SMEIdentifier 实例。
func NewSMEIdentifier(llmClient llm.Client, smes []config.SMEConfig) *SMEIdentifier {
	roster := make([]model.SMERecord, 0, len(smes))
	for _, s := range smes {
		roster = append(roster, model.SMERecord{
			FullName:   s.FullName,
			Role:       s.Role,
			Department: s.Department,
			Email:      s.Email,
		})
	}
	return &SMEIdentifier{llmClient: llmClient, roster: roster}
}

// Roster 返回当前名册（只读副本）。
func (s *SMEIdentifier) Roster() []model.SMERecord {
	out := make([]model.SMERecord, len(s.roster))
	copy(out, s.roster)
	return out
}

// Identify 为一个问题选出最合适的专家。
// 序号不在 [0, N-1] 范围内时返回 ErrInvalidSelection。
func (s *SMEIdentifier) Identify(ctx context.Context, question string) (*model.SMERecord, error) {
	if len(s.roster) == 0 {
		return nil, ErrEmptyRoster
	}

	var selection struct {
		SMEIndex int `json:"sme_index"`
	}
	if err := s.llmClient.CompleteJSON(ctx, smeSystemPrompt(s.roster), question, smeSelectionSchema, &selection); err != nil {
		return nil, fmt.Errorf("专家指派调用失败: %w", err)
	}

	if selection.SMEIndex < 0 || selection.SMEIndex >= len(s.roster) {
		log.Errorf("[SME] 模型返回越界序号 %d, 名册大小 %d", selection.SMEIndex, len(s.roster))
		return nil, fmt.Errorf("%w: index %d, roster size %d", ErrInvalidSelection, selection.SMEIndex, len(s.roster))
	}

	sme := s.roster[selection.SMEIndex]
	log.Infof("[SME] 问题指派给专家: %s (%s)", sme.FullName, sme.Role)
	return &sme, nil
}

func smeSystemPrompt(roster []model.SMERecord) string {
	var b strings.Builder
	b.WriteString("You are routing RFP questions to subject matter experts. Given a question, select the single best-suited expert from the roster below and return only their index.\n\nRoster:\n")
	for i, sme := range roster {
		fmt.Fprintf(&b, "%d. %s — %s (%s)\n", i, sme.FullName, sme.Role, strings.Join(sme.Department, ", "))
	}
	fmt.Fprintf(&b, "\nReturn the index of exactly one expert, between 0 and %d.", len(roster)-1)
	return b.String()
}
