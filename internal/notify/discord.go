package notify

import (
	"context"
	"fmt"
	"time"

	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
)

const report_discord_send = "discord.send"

const (
	discordMaxFields = 25
	discordMaxEmbeds = 10
)

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type discordMessage struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

// Discord posts payloads to a discord webhook.
type Discord struct {
	webhookUrl string
	http       *resty.Client
	tel        telemetry.API
}

func NewDiscord(webhookUrl string, tel telemetry.API) Discord {
	assert.NotEmptyStr(webhookUrl)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("notify", tel)

	client := resty.New()
	client.SetTimeout(time.Second * 15)
	client.SetHeader("content-type", "application/json")
	telemetry.InstrumentResty(client, tel)

	return Discord{
		webhookUrl: webhookUrl,
		http:       client,
		tel:        tel,
	}
}

// messages splits the payload so that no message goes over discord's
// embed and field limits, only the first message carries the headline.
func discordMessages(payload Payload, sentAt time.Time) []discordMessage {
	if payload.Title == "" && len(payload.Blocks) == 0 {
		return []discordMessage{{Content: payload.Headline}}
	}

	timestamp := sentAt.UTC().Format(time.RFC3339)
	var embeds []discordEmbed
	blocks := payload.Blocks
	for first := true; first || len(blocks) > 0; first = false {
		n := min(len(blocks), discordMaxFields)
		embed := discordEmbed{
			Color:     payload.Color,
			Timestamp: timestamp,
		}
		if first {
			embed.Title = payload.Title
			embed.Description = payload.Description
		}
		for _, b := range blocks[:n] {
			embed.Fields = append(embed.Fields, discordField{Name: b.Title, Value: b.Body})
		}
		embeds = append(embeds, embed)
		blocks = blocks[n:]
	}

	var out []discordMessage
	for len(embeds) > 0 {
		n := min(len(embeds), discordMaxEmbeds)
		msg := discordMessage{Embeds: embeds[:n]}
		if len(out) == 0 {
			msg.Content = payload.Headline
		}
		out = append(out, msg)
		embeds = embeds[n:]
	}
	return out
}

func (d Discord) Send(ctx context.Context, payload Payload, sentAt time.Time) error {
	for _, msg := range discordMessages(payload, sentAt) {
		res, err := d.http.R().
			SetContext(ctx).
			SetBody(msg).
			Post(d.webhookUrl)
		if err != nil {
			d.tel.ReportBroken(report_discord_send, err)
			return fmt.Errorf("discord webhook: %w", err)
		}
		if !res.IsSuccess() {
			err := fmt.Errorf("discord webhook: unexpected status %s: %s", res.Status(), res.String())
			d.tel.ReportBroken(report_discord_send, err)
			return err
		}
		d.tel.ReportDebug("discord message sent", res.StatusCode())
	}
	return nil
}
