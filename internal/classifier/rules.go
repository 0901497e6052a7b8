package classifier

import "regexp"

// rule 把一个类别与英文、越南语两套关键词正则绑定。
type rule struct {
	category  Category
	primary   *regexp.Regexp
	secondary *regexp.Regexp
}

func (r rule) pattern(profile LanguageProfile) *regexp.Regexp {
	if profile == LanguageSecondary {
		return r.secondary
	}
	return r.primary
}

// rules 的顺序即优先级：同时命中多个类别时取靠前的一个，与词语在句中的位置无关。
var rules = []rule{
	{
		category: CategoryUser,
		primary: wordPattern(
			`profile`, `my account`, `account (?:info|details|settings)`,
			`my (?:name|email|username|password|role|details|information|info|phone)`,
			`who am i`, `username`, `password`, `avatar`, `about me`,
			`personal (?:info|information|details)`,
		),
		secondary: wordPattern(
			"hồ sơ", "tài khoản", "thông tin cá nhân", "tên (?:của )?tôi", "mật khẩu", "email",
			"ảnh đại diện", "số điện thoại", "tôi là ai",
			"ho so", "tai khoan", "thong tin ca nhan", "mat khau",
		),
	},
	{
		category: CategoryClass,
		primary: wordPattern(
			`class(?:es|mates?|rooms?)?`, `courses?`, `lessons?`, `schedules?`, `timetables?`,
			`enrol(?:l|ls|led|ling|ment|ments)?`, `rosters?`, `semesters?`, `syllabus`, `tutors?`,
		),
		secondary: wordPattern(
			"lớp(?: học)?", "khóa học", "khoá học", "môn học", "thời khóa biểu", "lịch học",
			"buổi học", "đăng ký", "bạn cùng lớp", "giáo trình",
			"lop(?: hoc)?", "khoa hoc", "mon hoc", "lich hoc", "dang ky",
		),
	},
	{
		category: CategoryAssignment,
		primary: wordPattern(
			`assignments?`, `homework`, `due(?: dates?)?`, `deadlines?`, `tasks?`, `exercises?`,
			`projects?`, `worksheets?`,
		),
		secondary: wordPattern(
			"bài tập(?: về nhà)?", "bài về nhà", "hạn nộp", "deadline", "nhiệm vụ", "đề bài",
			"bai tap", "han nop", "nhiem vu",
		),
	},
	{
		category: CategorySubmission,
		primary: wordPattern(
			`submissions?`, `(?:re)?submit(?:s|ted|ting)?`, `turn(?:ed)? in`, `hand(?:ed)? in`,
			`upload(?:s|ed)?`, `my answers?`, `drafts?`,
		),
		secondary: wordPattern(
			"bài nộp", "nộp bài", "đã nộp", "bài làm", "gửi bài", "tải lên",
			"bai nop", "nop bai", "bai lam",
		),
	},
	{
		category: CategoryQuestion,
		primary: wordPattern(
			`questions?`, `tests?`, `quiz(?:zes)?`, `exams?`, `mid-?terms?`, `mock tests?`,
			`ielts`, `toefl`, `toeic`,
		),
		secondary: wordPattern(
			"câu hỏi", "bài kiểm tra", "kiểm tra", "đề thi", "bài thi", "thi thử", "trắc nghiệm",
			"quiz", "test",
			"cau hoi", "kiem tra", "de thi", "bai thi",
		),
	},
	{
		category: CategoryFeedback,
		primary: wordPattern(
			`feedback`, `comments?`, `reviews?`, `grad(?:e|es|ed|ing)`, `scores?`, `marks?`,
			`evaluat(?:e|ed|ion)`, `corrections?`,
		),
		secondary: wordPattern(
			"nhận xét", "phản hồi", "góp ý", "chấm điểm", "điểm số", "điểm", "sửa lỗi", "đánh giá",
			"feedback",
			"nhan xet", "phan hoi", "gop y", "cham diem", "diem",
		),
	},
	{
		category: CategoryProgress,
		primary: wordPattern(
			`progress`, `improv(?:e|ed|ement|ing)`, `performance`, `levels?`, `streaks?`,
			`statistics`, `stats`, `achievements?`, `how am i doing`,
		),
		secondary: wordPattern(
			"tiến độ", "tiến bộ", "kết quả học tập", "thành tích", "trình độ", "cải thiện", "thống kê",
			"tien do", "tien bo", "trinh do", "cai thien",
		),
	},
}

// matchRules 返回第一个命中的类别；prompt 需已规范化。
func matchRules(prompt string, profile LanguageProfile) (Category, bool) {
	for _, r := range rules {
		if r.pattern(profile).MatchString(prompt) {
			return r.category, true
		}
	}
	return "", false
}
