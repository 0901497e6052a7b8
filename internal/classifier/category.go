// Package classifier 判断用户提问的语言与语义类别，用于决定回答前需要检索哪些上下文。
//
// 分类流程：
//  1. 按固定顺序匹配关键词规则（确定性，零成本）
//  2. 全部未命中时，请求补全服务在粗粒度标签集合中选择一个
package classifier

import "strings"

// Category 是提问所涉及数据的类别。
type Category string

const (
	CategoryUser       Category = "User"
	CategoryClass      Category = "Class"
	CategoryAssignment Category = "Assignment"
	CategorySubmission Category = "Submission"
	CategoryQuestion   Category = "Question/Test"
	CategoryFeedback   Category = "Feedback"
	CategoryProgress   Category = "Progress"
	CategoryOthers     Category = "Others"
)

// Categories 按声明顺序列出全部类别，Others 在最后。
var Categories = []Category{
	CategoryUser,
	CategoryClass,
	CategoryAssignment,
	CategorySubmission,
	CategoryQuestion,
	CategoryFeedback,
	CategoryProgress,
	CategoryOthers,
}

// fallbackLabels 是兜底分类时允许补全服务返回的标签，比规则表更粗。
var fallbackLabels = []Category{CategoryUser, CategoryClass, CategoryOthers}

func (c Category) String() string {
	return string(c)
}

// IsKnown 判断 c 是否属于封闭的类别集合（精确匹配）。
func (c Category) IsKnown() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Normalize 把任意标签映射回封闭集合：去除首尾空白、忽略大小写比较，
// 无法识别的标签（包括空串）一律视为 Others。
func (c Category) Normalize() Category {
	label := strings.TrimSpace(string(c))
	for _, known := range Categories {
		if strings.EqualFold(label, string(known)) {
			return known
		}
	}
	return CategoryOthers
}
