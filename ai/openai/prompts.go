package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/docchat/ai"
)

const profileResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "name": {"type": ["string", "null"]},
    "age": {"type": ["integer", "null"], "minimum": 0, "maximum": 130},
    "profession": {"type": ["string", "null"]},
    "hobby": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["name", "age", "profession", "hobby"],
  "additionalProperties": false
}`

const profilePromptTemplate = `คุณคือเจ้าหน้าที่ฝ่ายตอบคำถามนักศึกษาจากสำนักคอมพิวเตอร์ มหาวิทยาลัยบูรพา
โปรดวิเคราะห์ข้อมูลและสรุปโปรไฟล์ของผู้สนทนาเท่าที่มีอยู่ในข้อความอย่างสุภาพและรอบคอบ
หากไม่มีข้อมูลในบางส่วน กรุณาระบุว่า null โดยไม่สมมุติหรือเติมข้อมูลเอง

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble,
explanation or markdown fences. Start your response with { and end it with }.

%s

Rules:
- Only report facts the user states about themselves. Never infer a name from a greeting.
- "hobby" is a list. Return [] when no hobby is mentioned.
- The JSON must parse without errors; no trailing commas and no extra keys.

Example:
Input:
user: สวัสดีครับ ผมชื่อต้น อายุ 20 เรียนวิศวะคอม ชอบเล่นบาสครับ
Output:
{"name":"ต้น","age":20,"profession":"นักศึกษาวิศวกรรมคอมพิวเตอร์","hobby":["เล่นบาส"]}

Example:
Input:
user: how do I reset my wifi password
Output:
{"name":null,"age":null,"profession":null,"hobby":[]}`

const transcribePrompt = `Read all text visible in the image and return it verbatim.
Keep the original language and line breaks. If the image has no text, describe it in one short sentence.
Do not add commentary.`

// buildProfilePrompt creates the profile extraction system prompt with the schema embedded.
func buildProfilePrompt() string {
	return fmt.Sprintf(profilePromptTemplate, profileResponseSchema)
}

// renderTranscript flattens messages into "role: content" lines for extraction.
func renderTranscript(messages []ai.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(content)
		sb.WriteByte('\n')
	}
	return sb.String()
}
