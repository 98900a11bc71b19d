package notify

import (
	"fmt"
	"strings"
	"time"

	"gradewatch/internal/grades"
)

// ColorGreen is the embed accent used for grade announcements.
const ColorGreen = 5814783

// Block is one detail section of a notification, one per changed subject.
type Block struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Payload is everything a transport needs to render a notification. Title,
// Description and Blocks are optional, transports render only the headline
// when they are empty.
type Payload struct {
	Headline    string  `json:"headline"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Blocks      []Block `json:"blocks,omitempty"`
}

// Empty tells if there is nothing to send.
func (p Payload) Empty() bool {
	return p.Headline == "" && p.Title == "" && len(p.Blocks) == 0
}

// PlainText renders the payload without any markup, for logs and plain
// text email bodies.
func (p Payload) PlainText() string {
	var out strings.Builder
	out.WriteString(p.Headline)
	if p.Title != "" {
		out.WriteString("\n\n")
		out.WriteString(p.Title)
	}
	if p.Description != "" {
		out.WriteString("\n")
		out.WriteString(p.Description)
	}
	for _, b := range p.Blocks {
		out.WriteString("\n\n")
		out.WriteString(b.Title)
		out.WriteString("\n")
		out.WriteString(strings.ReplaceAll(b.Body, "**", ""))
	}
	return out.String()
}

const (
	firstRunHeadline = "👋 성적 알림 봇이 시작되었습니다.\n현재 성적 상태가 저장되었습니다."
	updateHeadline   = "새로운 성적이 확인되었습니다!"
	updateTitle      = "🎉 성적 발표 알림"
	updateDesc       = "새로운 성적이 등록되었습니다!"
)

// Compose turns a change set into a notification. NoChange has nothing to
// say and yields the zero Payload.
func Compose(cs grades.ChangeSet) Payload {
	switch cs.Kind {
	case grades.FirstRun:
		return Payload{Headline: firstRunHeadline}
	case grades.Updated:
		blocks := make([]Block, len(cs.Changed))
		for i, r := range cs.Changed {
			blocks[i] = Block{
				Title: r.Subject,
				Body:  fmt.Sprintf("성적: **%s**\n상태: %s", r.Grade, r.Status),
			}
		}
		return Payload{
			Headline:    updateHeadline,
			Title:       updateTitle,
			Description: updateDesc,
			Color:       ColorGreen,
			Blocks:      blocks,
		}
	}
	return Payload{}
}

// ComposeStartup is sent once when the daemon starts, before the first cycle.
func ComposeStartup(interval time.Duration) Payload {
	return Payload{
		Headline: fmt.Sprintf("🤖 봇이 시작되었습니다. %d분마다 성적을 확인합니다.", int(interval.Minutes())),
	}
}

// ComposeTest is sent by the cli to check that a channel works.
func ComposeTest() Payload {
	return Payload{
		Headline:    "🔔 테스트 알림입니다.",
		Title:       "gradewatch",
		Description: "알림 채널이 정상적으로 설정되었습니다.",
		Color:       ColorGreen,
		Blocks: []Block{
			{Title: "예시 과목", Body: "성적: **A+**\n상태: 입력"},
		},
	}
}
