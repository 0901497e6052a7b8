package classifier

import (
	"regexp"
	"strings"
)

// LanguageProfile 决定使用哪一套关键词规则。
type LanguageProfile int

const (
	// LanguagePrimary 英文
	LanguagePrimary LanguageProfile = iota
	// LanguageSecondary 越南语
	LanguageSecondary
)

func (p LanguageProfile) String() string {
	if p == LanguageSecondary {
		return "vi"
	}
	return "en"
}

// RE2 的 \b 只识别 ASCII 单词字符，带声调的越南语字母两侧需要自定义边界。
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:[^\p{L}\p{N}_]|$)`
)

// wordPattern 编译一个忽略大小写、按整词匹配任一片段的正则。片段本身可以包含正则语法。
func wordPattern(fragments ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + wordStart + `(?:` + strings.Join(fragments, "|") + `)` + wordEnd)
}

var (
	vietnameseDiacritics = regexp.MustCompile(`(?i)[àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ]`)

	// 高频虚词与平台领域名词，含不带声调的输入写法。
	// 不带声调时与英文人名或单词同形的词（如 minh、hoc）不收录，带声调的写法由 vietnameseDiacritics 识别。
	vietnameseWords = wordPattern(
		"của", "tôi", "bạn", "và", "không", "được", "những", "các", "một", "trong",
		"khi nào", "là gì", "như thế nào", "bao nhiêu", "tại sao", "giúp", "lớp", "bài tập",
		"giáo viên", "học sinh", "điểm", "kiểm tra", "khóa học",
		"toi", "cua", "khong", "duoc", "nhung", "mot", "khi nao", "la gi", "nhu the nao",
		"bao nhieu", "tai sao", "giup", "lop", "bai tap", "giao vien", "hoc sinh",
		"diem", "kiem tra", "khoa hoc",
	)
)

// DetectLanguage 判断提问是否使用越南语书写。总是返回一个结果，没有副作用。
func DetectLanguage(prompt string) LanguageProfile {
	if vietnameseDiacritics.MatchString(prompt) || vietnameseWords.MatchString(prompt) {
		return LanguageSecondary
	}
	return LanguagePrimary
}
