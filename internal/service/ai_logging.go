package service

import (
	"log"
	"strings"
	"unicode/utf8"
)

// 养护文案可能很长，日志只保留开头一段
const maxCareLogRunes = 800

// logAIExchange 输出养护文案生成过程中的模型请求与响应摘要，便于核对生成质量
func logAIExchange(kind, phase, content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		log.Printf("[garden-ai %s] %s: <empty>", kind, phase)
		return
	}

	runeCount := utf8.RuneCountInString(trimmed)
	snippet := trimmed
	if runeCount > maxCareLogRunes {
		snippet = string([]rune(trimmed)[:maxCareLogRunes]) + "…"
	}
	log.Printf("[garden-ai %s] %s (%d runes): %s", kind, phase, runeCount, snippet)
}
