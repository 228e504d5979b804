package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyText(t *testing.T) {
	chunks, err := Split("", 100, 20)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	text := "A short document that fits in one chunk."
	chunks, err := Split(text, 1500, 300)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].ChunkID)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, len([]rune(text)), chunks[0].EndChar)
}

func TestSplitInvalidArgs(t *testing.T) {
	_, err := Split("some text", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = Split("some text", 100, -1)
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	// overlap >= chunkSize 会导致窗口不前进，必须拒绝
	_, err = Split("some text", 100, 100)
	assert.ErrorIs(t, err, ErrInvalidOverlap)
}

func TestSplitBoundaryAdjustment(t *testing.T) {
	// 句号落在窗口 80% 之后，应该在句号处截断而不是硬切
	first := strings.Repeat("a", 90) + "."
	text := first + " " + strings.Repeat("b", 200)
	chunks, err := Split(text, 100, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	assert.Equal(t, first, chunks[0].Text)
}

func TestSplitNoBoundaryInWindow(t *testing.T) {
	// 连续无分隔符的文本退化为按 chunkSize 硬切
	text := strings.Repeat("x", 250)
	chunks, err := Split(text, 100, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, 100, len(chunks[0].Text))
	assert.Equal(t, 100, len(chunks[1].Text))
	assert.Equal(t, 50, len(chunks[2].Text))
}

func TestSplitExhaustiveCoverage(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	text := b.String()

	chunks, err := Split(text, 400, 80)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// 按原始偏移拼接应无缝覆盖全文：每块的 start 不晚于前一块的 end
	assert.Equal(t, 0, chunks[0].StartChar)
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].StartChar, chunks[i-1].EndChar,
			"chunk %d leaves a gap", i)
		assert.Greater(t, chunks[i].StartChar, chunks[i-1].StartChar,
			"chunk %d start does not advance", i)
	}
	assert.Equal(t, len([]rune(text)), chunks[len(chunks)-1].EndChar)

	// chunk_id 按顺序递增
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkID)
	}
}

func TestSplit3000CharDocument(t *testing.T) {
	var b strings.Builder
	for b.Len() < 3000 {
		b.WriteString("Agencies issue requests for proposals to procure services. ")
	}
	text := b.String()[:3000]

	chunks, err := Split(text, 1500, 300)
	require.NoError(t, err)

	// 3000 字符、1500/300 的配置下应切出 3 块左右，每块不超过 1500
	assert.GreaterOrEqual(t, len(chunks), 2)
	assert.LessOrEqual(t, len(chunks), 4)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.EndChar-c.StartChar, 1500)
	}
	// 第二块的起点不晚于 1500-300=1200
	require.Greater(t, len(chunks), 1)
	assert.LessOrEqual(t, chunks[1].StartChar, 1200)
}

func TestSplitMultiByteOffsets(t *testing.T) {
	// 偏移量按 rune 计数而不是字节
	text := strings.Repeat("中文文本处理 ", 50)
	chunks, err := Split(text, 100, 20)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	total := len([]rune(text))
	assert.Equal(t, total, chunks[len(chunks)-1].EndChar)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.EndChar, total)
	}
}
