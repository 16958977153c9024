// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"fmt"
	"strings"

	"github.com/ovozbot/ovoz/models"
)

// Progress bars map a percentage to a fixed-width bar, one filled block per
// 5%.
const barWidth = 20

func progressBar(percent int) string {
	filled := percent / 5
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled)
}

func pollCardText(p *models.Poll) string {
	return "📊 Poll:\n\n❓ " + p.Question
}

// resultsText renders the live tally with per-option bars, in original
// option order.
func resultsText(t models.Tally) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Results:\n\n❓ %s\n\n", t.Question)
	for i, o := range t.Options {
		fmt.Fprintf(&b, "%d. %s\n%s %d votes (%d%%)\n\n", i+1, o.Text, progressBar(o.Percent), o.Votes, o.Percent)
	}
	fmt.Fprintf(&b, "👥 Total votes: %d\n", t.Total)
	if t.Active {
		b.WriteString("⏳ Active")
	} else {
		b.WriteString("🔒 Finished")
	}
	return b.String()
}

func pollKeyboard(pollID string) *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{{Text: "🗳 Vote", Data: "start_vote_" + pollID}},
		{{Text: "📤 Share", SwitchInline: "poll_" + pollID}},
	}}
}

func optionsKeyboard(p *models.Poll) *Keyboard {
	rows := make([][]Button, 0, len(p.Options)+1)
	for i, o := range p.Options {
		rows = append(rows, []Button{{
			Text: fmt.Sprintf("%s (%d)", o.Text, o.Votes),
			Data: fmt.Sprintf("vote_%s_%d", p.ID, i),
		}})
	}
	rows = append(rows, []Button{{Text: "🔙 Back", Data: "back_to_poll_" + p.ID}})
	return &Keyboard{Rows: rows}
}

func votedKeyboard(pollID string) *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{{Text: "📊 Results", Data: "show_results_" + pollID}},
		{{Text: "📤 Share", SwitchInline: "poll_" + pollID}},
	}}
}

func resultsKeyboard(pollID string) *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{{Text: "🔙 Back", Data: "back_to_poll_" + pollID}},
		{{Text: "📤 Share", SwitchInline: "poll_" + pollID}},
	}}
}

func inlineCardKeyboard(pollID string) *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{{Text: "🗳 Vote", Data: "start_vote_" + pollID}},
		{{Text: "📊 View results", Data: "show_results_" + pollID}},
		{{Text: "📤 Share", SwitchInline: "poll_" + pollID}},
	}}
}

func subscribeKeyboard(channels []string, pollID string) *Keyboard {
	rows := make([][]Button, 0, len(channels)+1)
	for _, ch := range channels {
		rows = append(rows, []Button{{
			Text: "📢 Subscribe to " + ch,
			URL:  "https://t.me/" + strings.TrimPrefix(ch, "@"),
		}})
	}
	rows = append(rows, []Button{{Text: "✅ I subscribed", Data: "check_subscription_" + pollID}})
	return &Keyboard{Rows: rows}
}
