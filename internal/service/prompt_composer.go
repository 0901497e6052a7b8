package service

import (
	"strings"
	"tutor-smart-go/internal/config"
	"tutor-smart-go/pkg/llm"
)

const (
	defaultPersona = "You are Tutor Assistant, the teaching assistant of an English tutoring platform. " +
		"You help students and teachers with questions about their account, their classes and learning English."
	defaultRefStart       = "<<CONTEXT>>"
	defaultRefEnd         = "<<END>>"
	defaultWritingRubric  = "You are an experienced IELTS writing examiner. Grade the student's writing for the task below. " +
		"Assess Task Response, Coherence and Cohesion, Lexical Resource, and Grammatical Range and Accuracy. " +
		"Give a band score from 0 to 9 for each criterion and an overall band, then list the most important " +
		"mistakes with corrections and concrete suggestions for improvement."
	defaultSpeakingRubric = "You are an experienced IELTS speaking examiner. The student's spoken answer has been transcribed to text. " +
		"Assess Fluency and Coherence, Lexical Resource, and Grammatical Range and Accuracy from the transcript. " +
		"Give a band score from 0 to 9 for each criterion and an overall band, then suggest how the answer could be improved."
	answerInstruction = "Answer in the same language as the user's question. Keep the answer concise."
)

// PromptComposer 把检索到的上下文与用户输入填充进固定模板。所有方法都是纯函数。
type PromptComposer struct {
	persona        string
	refStart       string
	refEnd         string
	writingRubric  string
	speakingRubric string
}

// NewPromptComposer 根据配置创建 PromptComposer，未配置的字段使用内置模板。
func NewPromptComposer(cfg config.LLMPromptConfig) *PromptComposer {
	return &PromptComposer{
		persona:        firstNonEmpty(cfg.Persona, defaultPersona),
		refStart:       firstNonEmpty(cfg.RefStart, defaultRefStart),
		refEnd:         firstNonEmpty(cfg.RefEnd, defaultRefEnd),
		writingRubric:  firstNonEmpty(cfg.WritingRubric, defaultWritingRubric),
		speakingRubric: firstNonEmpty(cfg.SpeakingRubric, defaultSpeakingRubric),
	}
}

// Plain 构建不带检索上下文的问答消息。
func (p *PromptComposer) Plain(prompt string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: p.persona + "\n\n" + answerInstruction},
		{Role: llm.RoleUser, Content: prompt},
	}
}

// QA 构建落地问答消息：system 中原样嵌入上下文，user 为原始提问。
func (p *PromptComposer) QA(contextPayload, prompt string) []llm.Message {
	var sys strings.Builder
	sys.WriteString(p.persona)
	sys.WriteString("\n\nThe following platform data belongs to the person asking. Use it as facts when answering.\n")
	sys.WriteString(p.refStart)
	sys.WriteString("\n")
	sys.WriteString(contextPayload)
	sys.WriteString("\n")
	sys.WriteString(p.refEnd)
	sys.WriteString("\n\n")
	sys.WriteString(answerInstruction)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: sys.String()},
		{Role: llm.RoleUser, Content: prompt},
	}
}

// Writing 构建写作批改指令：题目与学生作文原样嵌入同一条消息。
func (p *PromptComposer) Writing(questionText, writingText string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleUser, Content: gradingInstruction(p.writingRubric, questionText, "Student's writing", writingText)},
	}
}

// Speaking 构建口语批改指令：题目与回答转写原样嵌入同一条消息。
func (p *PromptComposer) Speaking(questionText, answerText string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleUser, Content: gradingInstruction(p.speakingRubric, questionText, "Transcript of the student's answer", answerText)},
	}
}

func gradingInstruction(rubric, questionText, answerLabel, answerText string) string {
	var b strings.Builder
	b.WriteString(rubric)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(questionText)
	b.WriteString("\n\n")
	b.WriteString(answerLabel)
	b.WriteString(":\n")
	b.WriteString(answerText)
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
