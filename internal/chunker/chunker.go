// Package chunker 将整篇文档文本切分为带重叠的边界感知分块。
// 纯函数实现，不依赖任何外部服务。
package chunker

import (
	"errors"
	"strings"

	"rfp-launchpad-go/internal/model"
)

var (
	// ErrInvalidChunkSize 表示 chunkSize 不是正数。
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	// ErrInvalidOverlap 表示 overlap 为负数或不小于 chunkSize。
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than chunk size")
)

// Split 从位置 0 开始推进一个 chunkSize 大小的窗口切分 text。
// 窗口右边界落在正文中间时，在窗口内向左回找最近的句号、换行或空格，
// 若断点超过窗口的 80% 则在断点处截断，保持句子和单词的完整性。
// 下一个窗口从 end-overlap 开始，overlap 按实际（可能调整过的）end 计算。
// 偏移量全部按 rune 计数，对多字节文本同样成立。
func Split(text string, chunkSize, overlap int) ([]model.Chunk, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	var chunks []model.Chunk
	chunkID := 0
	start := 0
	for start < n {
		end := start + chunkSize
		if end >= n {
			end = n
		} else {
			// 在窗口内回找最右边的断点
			breakAt := -1
			for i := end - 1; i > start; i-- {
				r := runes[i]
				if r == '.' || r == '\n' || r == ' ' {
					breakAt = i
					break
				}
			}
			// 断点太靠前就放弃调整，避免无限回退
			if breakAt > start+(chunkSize*8)/10 {
				end = breakAt + 1
			}
		}

		chunkText := strings.TrimSpace(string(runes[start:end]))
		if chunkText != "" {
			chunks = append(chunks, model.Chunk{
				ChunkID:   chunkID,
				Text:      chunkText,
				StartChar: start,
				EndChar:   end,
				Length:    len([]rune(chunkText)),
			})
			chunkID++
		}

		if end >= n {
			break
		}
		next := end - overlap
		// start 必须严格递增，否则窗口不前进
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks, nil
}
