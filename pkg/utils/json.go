package utils

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonFenceRegex = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	anyFenceRegex  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")
)

// ExtractJSONContent достает JSON из ответа модели.
// Порядок: блок ```json```, любой блок ```, затем участок от первой { или [ до последней } или ].
// Возвращает пустую строку, если ничего похожего на JSON не найдено.
func ExtractJSONContent(rawText string) string {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return ""
	}

	for _, re := range []*regexp.Regexp{jsonFenceRegex, anyFenceRegex} {
		if m := re.FindStringSubmatch(rawText); len(m) > 1 {
			if candidate := strings.TrimSpace(m[1]); json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}

	if json.Valid([]byte(rawText)) {
		return rawText
	}

	firstBrace := strings.Index(rawText, "{")
	firstBracket := strings.Index(rawText, "[")
	start, closer := -1, ""
	switch {
	case firstBrace != -1 && (firstBracket == -1 || firstBrace < firstBracket):
		start, closer = firstBrace, "}"
	case firstBracket != -1:
		start, closer = firstBracket, "]"
	}
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(rawText, closer)
	if end > start {
		candidate := rawText[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}
		if balanced := balanceBrackets(candidate); json.Valid([]byte(balanced)) {
			return balanced
		}
	}

	// Ответ мог оборваться по лимиту токенов - пробуем закрыть скобки.
	if balanced := balanceBrackets(rawText[start:]); json.Valid([]byte(balanced)) {
		return balanced
	}
	return ""
}

// balanceBrackets дописывает недостающие закрывающие скобки с учетом строк.
func balanceBrackets(text string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(strings.TrimSpace(text), ","))
	if inString {
		sb.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteByte(stack[i])
	}
	return sb.String()
}

// StringShort обрезает строку до указанной максимальной длины,
// добавляя многоточие, если строка была обрезана.
func StringShort(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
