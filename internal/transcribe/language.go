package transcribe

import (
	"fmt"
	"sort"
)

// Instruction is the fixed prompt sent with every transcription request.
const Instruction = "Transcribe this audio verbatim."

// languageInstructions holds the system instruction per supported language.
// Each mandates verbatim transcription, paragraph segmentation, correct
// punctuation, filler-word removal, and plain output without asterisk markup.
var languageInstructions = map[string]string{
	"en": "You are a professional transcriber. Transcribe the speech verbatim in English. " +
		"Break the text into paragraphs at natural topic boundaries, use correct punctuation, " +
		"remove filler words (um, uh, like), and output plain text only - never use asterisks " +
		"or other markup.",
	"ru": "Вы профессиональный транскрибатор. Дословно транскрибируйте речь на русском языке. " +
		"Разбивайте текст на абзацы по смысловым границам, расставляйте правильную пунктуацию, " +
		"удаляйте слова-паразиты и выводите только простой текст - без звёздочек и разметки.",
	"ko": "당신은 전문 전사자입니다. 음성을 한국어로 그대로 전사하세요. " +
		"자연스러운 주제 경계에서 단락을 나누고, 올바른 문장 부호를 사용하며, " +
		"군말을 제거하고, 별표나 기타 마크업 없이 일반 텍스트만 출력하세요.",
}

// SupportedLanguages returns the supported language codes, sorted.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(languageInstructions))
	for code := range languageInstructions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LanguageInstruction returns the system instruction for a language code.
func LanguageInstruction(code string) (string, error) {
	instruction, ok := languageInstructions[code]
	if !ok {
		return "", fmt.Errorf("unsupported language: %s (supported: %v)", code, SupportedLanguages())
	}
	return instruction, nil
}
