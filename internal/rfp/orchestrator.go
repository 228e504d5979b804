package rfp

import (
	"context"
	"time"

	"rfp-launchpad-go/internal/model"
	"rfp-launchpad-go/pkg/log"
)

// Orchestrator 串联整条流水线：拆解 → 逐问指派专家 → 逐问生成答案。
// 刻意不做并行：问题严格按输入顺序逐个处理，输出顺序与输入一致。
type Orchestrator struct {
	breakdown *BreakdownStage
	sme       *SMEIdentifier
	answerer  *AnswerGenerator
}

// NewOrchestrator 创建一个新的 Orchestrator 实例。
func NewOrchestrator(breakdown *BreakdownStage, sme *SMEIdentifier, answerer *AnswerGenerator) *Orchestrator {
	return &Orchestrator{
		breakdown: breakdown,
		sme:       sme,
		answerer:  answerer,
	}
}

// Run 对一份 RFP 全文执行完整流水线。
// 拆解失败是致命错误；单个问题的失败只产出降级结果，不中断后续问题。
func (o *Orchestrator) Run(ctx context.Context, rfpText string) (*model.RFPRunResult, error) {
	startTime := time.Now()
	log.Info("[Orchestrator] 开始RFP处理流程")

	breakdown, err := o.breakdown.Breakdown(ctx, rfpText)
	if err != nil {
		return nil, err
	}

	answers := make([]model.AnswerResult, 0, len(breakdown.QuestionsToAnswer))
	answered := 0
	for i, question := range breakdown.QuestionsToAnswer {
		log.Infof("[Orchestrator] 处理问题 %d/%d", i+1, len(breakdown.QuestionsToAnswer))

		// 专家指派仅供下游路由参考，失败不影响答案生成
		sme, err := o.sme.Identify(ctx, question)
		if err != nil {
			log.Warnf("[Orchestrator] 问题 %d 专家指派失败: %v", i+1, err)
			sme = nil
		}

		result := o.answerer.Answer(ctx, question)
		result.SME = sme
		if result.Confidence != model.ConfidenceError {
			answered++
		}
		answers = append(answers, result)
	}

	endTime := time.Now()
	metadata := model.RunMetadata{
		StartTime:         model.LocalTime(startTime),
		EndTime:           model.LocalTime(endTime),
		ElapsedSeconds:    endTime.Sub(startTime).Seconds(),
		TotalQuestions:    len(breakdown.QuestionsToAnswer),
		QuestionsAnswered: answered,
	}

	log.Infof("[Orchestrator] RFP处理完成, 总问题数: %d, 成功回答: %d, 耗时: %.1fs",
		metadata.TotalQuestions, metadata.QuestionsAnswered, metadata.ElapsedSeconds)

	return &model.RFPRunResult{
		Breakdown: *breakdown,
		Answers:   answers,
		Metadata:  metadata,
	}, nil
}
