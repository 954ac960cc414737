package conversation

import (
	"context"
	"strings"

	"github.com/poiesic/docchat/ai"
)

// Stage rewrites retrieved context before the final answer is composed.
// A stage has no side effects beyond its completion call.
type Stage interface {
	Name() string
	Run(ctx context.Context, completer ai.Completer, question, passage string) (string, error)
}

const curationPrompt = `คุณเป็นผู้ช่วยคัดกรองข้อมูล
จากข้อมูลที่ให้มา ให้เลือกเฉพาะข้อความที่เกี่ยวข้องกับคำถามโดยตรง คัดลอกข้อความเดิมโดยไม่แก้ไขหรือแต่งเติม
ถ้าไม่มีข้อความใดเกี่ยวข้อง ให้ตอบว่างเปล่า`

const summarizationPrompt = `คุณเป็นผู้ช่วยสรุปข้อมูล
สรุปข้อมูลที่ให้มาให้กระชับและตรงกับคำถาม เก็บขั้นตอน ตัวเลข ชื่อระบบ และช่องทางติดต่อไว้ครบถ้วน
ห้ามเพิ่มข้อมูลที่ไม่มีในต้นฉบับ`

// promptStage is a stage defined entirely by its instructions.
type promptStage struct {
	name         string
	instructions string
}

// Curation keeps only the passages that bear on the question.
func Curation() Stage {
	return &promptStage{name: "curation", instructions: curationPrompt}
}

// Summarization condenses the context around the question.
func Summarization() Stage {
	return &promptStage{name: "summarization", instructions: summarizationPrompt}
}

func (s *promptStage) Name() string {
	return s.name
}

// Run sends the context and question as a single user message. Blank
// context is returned unchanged without a call.
func (s *promptStage) Run(ctx context.Context, completer ai.Completer, question, passage string) (string, error) {
	if strings.TrimSpace(passage) == "" {
		return passage, nil
	}
	input := "ข้อมูล:\n" + passage + "\n\nคำถาม: " + question
	out, err := completer.Complete(ctx, s.instructions, []ai.Message{ai.UserMessage(input)})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
