package rfp

import (
	"context"
	"fmt"
	"strings"

	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/internal/model"
	"rfp-launchpad-go/pkg/embedding"
	"rfp-launchpad-go/pkg/llm"
	"rfp-launchpad-go/pkg/log"
)

// insufficientContextAnswer 是零检索结果时的固定回复，不消耗模型调用。
const insufficientContextAnswer = "Insufficient information is available in the knowledge base to answer this question."

const answerSystemPrompt = `You are writing proposal responses on behalf of the organization whose documentation is provided as context. Answer the question using ONLY the supplied context. Write in the organization's voice, as if you are the organization responding to the agency's RFP. If the context does not fully cover the question, explicitly state what information is missing instead of fabricating it. Do not invent capabilities, clients, numbers, or certifications that are not in the context.`

// Retriever 是向量索引的检索面，便于测试时替换。
type Retriever interface {
	Query(ctx context.Context, vector []float32, topK int) ([]model.VectorMatch, error)
}

// AnswerGenerator 用 RAG 方式回答单个问题：
// 向量化问题、检索 top-k 上下文、拼接后交给生成模型。
type AnswerGenerator struct {
	embeddingClient embedding.Client
	retriever       Retriever
	llmClient       llm.Client
	cfg             config.RFPConfig
}

// NewAnswerGenerator 创建一个新的 AnswerGenerator 实例。
func NewAnswerGenerator(embeddingClient embedding.Client, retriever Retriever, llmClient llm.Client, cfg config.RFPConfig) *AnswerGenerator {
	return &AnswerGenerator{
		embeddingClient: embeddingClient,
		retriever:       retriever,
		llmClient:       llmClient,
		cfg:             cfg,
	}
}

// Answer 回答一个问题，任何失败都被就地转成 confidence="error" 的降级结果，
// 永远不向调用方抛错——单个问题失败不允许中断整批。
func (g *AnswerGenerator) Answer(ctx context.Context, question string) model.AnswerResult {
	result, err := g.generate(ctx, question)
	if err != nil {
		log.Errorf("[Answer] 问题处理失败, Question: %.80s, Error: %v", question, err)
		return model.AnswerResult{
			Question:   question,
			Answer:     err.Error(),
			Confidence: model.ConfidenceError,
		}
	}
	return result
}

func (g *AnswerGenerator) generate(ctx context.Context, question string) (model.AnswerResult, error) {
	log.Infof("[Answer] 步骤1: 向量化问题, Question: %.80s", question)
	vector, err := g.embeddingClient.CreateEmbedding(ctx, question)
	if err != nil {
		return model.AnswerResult{}, fmt.Errorf("问题向量化失败: %w", err)
	}

	log.Infof("[Answer] 步骤2: 检索 top-%d 上下文", g.cfg.TopK)
	matches, err := g.retriever.Query(ctx, vector, g.cfg.TopK)
	if err != nil {
		return model.AnswerResult{}, fmt.Errorf("检索上下文失败: %w", err)
	}

	// 零检索结果：直接走低置信度的固定回复，不调用模型
	if len(matches) == 0 {
		log.Warnf("[Answer] 未检索到任何上下文, 跳过模型调用, Question: %.80s", question)
		return model.AnswerResult{
			Question:   question,
			Answer:     insufficientContextAnswer,
			Sources:    []string{},
			Confidence: model.ConfidenceLow,
		}, nil
	}

	chunks := make([]model.ScoredChunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, model.ScoredChunk{
			Text:   m.Metadata.Text,
			Source: m.Metadata.Source,
			DocID:  m.Metadata.DocID,
			Score:  m.Score,
		})
	}

	log.Info("[Answer] 步骤3: 拼接上下文并调用生成模型")
	answer, err := g.llmClient.Complete(ctx, answerSystemPrompt, buildUserPrompt(question, chunks))
	if err != nil {
		return model.AnswerResult{}, fmt.Errorf("生成答案失败: %w", err)
	}

	avg := averageScore(chunks)
	confidence := g.bucketConfidence(avg)
	log.Infof("[Answer] 答案生成完成, avg_score: %.3f, confidence: %s", avg, confidence)

	return model.AnswerResult{
		Question:          question,
		Answer:            answer,
		ContextChunks:     chunks,
		Sources:           dedupeSources(chunks),
		Confidence:        confidence,
		AvgRelevanceScore: avg,
	}, nil
}

// buildUserPrompt 把检索结果格式化为带来源与相关度的上下文块。
func buildUserPrompt(question string, chunks []model.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[Context %d - %s (relevance: %.3f)]\n%s\n\n", i+1, chunk.Source, chunk.Score, chunk.Text)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

// bucketConfidence 把检索得分均值映射为置信度分档。
// 阈值是严格下界：恰好等于阈值的得分落入下一档。
func (g *AnswerGenerator) bucketConfidence(avgScore float64) string {
	switch {
	case avgScore > g.cfg.HighConfidence:
		return model.ConfidenceHigh
	case avgScore > g.cfg.MediumConfidence:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func averageScore(chunks []model.ScoredChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range chunks {
		sum += c.Score
	}
	return sum / float64(len(chunks))
}

// dedupeSources 按首次出现顺序去重来源。
func dedupeSources(chunks []model.ScoredChunk) []string {
	seen := make(map[string]bool)
	sources := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Source == "" || seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		sources = append(sources, c.Source)
	}
	return sources
}
