package justify

import "strings"

// NormalSpace 是分词与常规词间距使用的空格。
const NormalSpace = " "

// ThinSpace 是默认的细空格（U+2009），只用于微调两端对齐行的宽度。
const ThinSpace = "\u2009"

// tokenize 先按普通空格切分，再在每个硬换行标记之后断开，
// 保证标记总是位于 token 末尾："b\nc" → "b\n", "c"。
// 连续空格产生的空串被保留。
func tokenize(text string) []string {
	pieces := strings.Split(text, NormalSpace)
	tokens := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		tokens = appendBroken(tokens, piece)
	}
	return tokens
}

func appendBroken(tokens []string, piece string) []string {
	for {
		end := breakEnd(piece)
		if end < 0 || end == len(piece) {
			return append(tokens, piece)
		}
		tokens = append(tokens, piece[:end])
		piece = piece[end:]
	}
}

// breakEnd 返回 s 中第一个硬换行标记结束处的字节偏移，没有则返回 -1。
func breakEnd(s string) int {
	i := strings.IndexAny(s, "\r\n")
	if i < 0 {
		return -1
	}
	if s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n' {
		return i + 2
	}
	return i + 1
}

// hardBreak 返回 token 末尾的硬换行标记（"\r\n"、"\n" 或 "\r"）。
func hardBreak(token string) string {
	switch {
	case strings.HasSuffix(token, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(token, "\n"):
		return "\n"
	case strings.HasSuffix(token, "\r"):
		return "\r"
	default:
		return ""
	}
}

// visible 去掉换行标记，只保留可测量的内容。
func visible(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// candidate 拼出试探行：每个 token 后跟一个普通空格。
func candidate(line []string, next string) string {
	var b strings.Builder
	for _, tok := range line {
		b.WriteString(tok)
		b.WriteString(NormalSpace)
	}
	b.WriteString(next)
	b.WriteString(NormalSpace)
	return visible(b.String())
}

// Strip 去掉行内的细空格单元，恢复普通间距的文本。
func Strip(line, thin string) string {
	if thin == "" {
		thin = ThinSpace
	}
	return strings.ReplaceAll(line, thin, "")
}
