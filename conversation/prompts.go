package conversation

import (
	"fmt"
	"strings"

	"github.com/poiesic/docchat/core"
)

// DefaultPersona is the role the assistant plays.
const DefaultPersona = `คุณเป็นเจ้าหน้าที่ฝ่ายตอบคำถามนักศึกษาของสำนักคอมพิวเตอร์ มหาวิทยาลัยบูรพา
ให้ตอบแบบสุภาพ เป็นทางการ ใช้ถ้อยคำไพเราะ อบอุ่น ให้ความรู้สึกเป็นผู้ชายใจดีและช่วยเหลือ
ใช้ข้อมูลจาก context โปรไฟล์ผู้ใช้ และประวัติการสนทนา
- ตอบเฉพาะสิ่งที่มีในข้อมูล อย่าคิดเพิ่มเอง
- ถ้ามีวิธีแก้หลายวิธี ให้บอกว่ามีกี่วิธี พร้อมอธิบายทีละขั้นตอน
- แนะนำช่องทางติดต่อเจ้าหน้าที่ถ้าผู้ใช้ต้องการความช่วยเหลือเพิ่มเติม`

// DefaultApology is sent when the completion provider fails.
const DefaultApology = "ขออภัย เกิดข้อผิดพลาดในการประมวลผล กรุณาลองใหม่อีกครั้ง"

const (
	firstTurnInstruction  = `นี่คือข้อความแรกของผู้ใช้ ให้กล่าวทักทายด้วย "สวัสดีครับ" ก่อนตอบ`
	steadyTurnInstruction = `ผู้ใช้ได้รับการทักทายแล้ว ให้ตอบโดยไม่ต้องขึ้นต้นด้วยคำว่าสวัสดี`
	emotionTemplate       = "อารมณ์ของผู้ใช้ขณะนี้: %s ปรับน้ำเสียงให้เหมาะสม"
	contextHeader         = "Context (relevant chunks):"
	noContext             = "(ไม่พบข้อมูลที่เกี่ยวข้อง ให้แจ้งผู้ใช้อย่างสุภาพและแนะนำให้ติดต่อเจ้าหน้าที่)"
)

// promptInput is everything the system prompt is assembled from.
type promptInput struct {
	persona   string
	emotion   string
	profile   core.Profile
	context   string
	firstTurn bool
}

func buildSystemPrompt(in promptInput) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(in.persona))
	sb.WriteString("\n")

	if in.firstTurn {
		sb.WriteString(firstTurnInstruction)
	} else {
		sb.WriteString(steadyTurnInstruction)
	}
	sb.WriteString("\n")

	if emotion := strings.TrimSpace(in.emotion); emotion != "" {
		fmt.Fprintf(&sb, emotionTemplate, emotion)
		sb.WriteString("\n")
	}

	if !in.profile.IsZero() {
		sb.WriteString("\n")
		sb.WriteString(renderProfile(in.profile))
	}

	sb.WriteString("\n")
	sb.WriteString(contextHeader)
	sb.WriteString("\n")
	if text := strings.TrimSpace(in.context); text != "" {
		sb.WriteString(text)
	} else {
		sb.WriteString(noContext)
	}
	return sb.String()
}

// renderProfile formats what is known about the user. Unknown fields are
// written as "unknown" so the model does not invent them.
func renderProfile(p core.Profile) string {
	orUnknown := func(s string) string {
		if s == "" {
			return "unknown"
		}
		return s
	}
	age := "unknown"
	if p.Age > 0 {
		age = fmt.Sprint(p.Age)
	}
	hobbies := "unknown"
	if len(p.Hobbies) > 0 {
		hobbies = strings.Join(p.Hobbies, ", ")
	}
	return fmt.Sprintf("User Profile:\nName: %s\nAge: %s\nProfession: %s\nHobby: %s\n",
		orUnknown(p.Name), age, orUnknown(p.Profession), hobbies)
}
