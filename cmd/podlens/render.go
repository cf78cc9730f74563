package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/podlens/podlens/internal/api"
	"github.com/podlens/podlens/internal/session"
)

var (
	answerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			MarginBottom(1)

	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	sourceHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	sourceMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	guideTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))

	counterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

func renderAnswer(resp *api.SearchResponse) string {
	var b strings.Builder

	b.WriteString(answerStyle.Render(resp.Answer))
	b.WriteString("\n")

	if len(resp.Sources) > 0 {
		b.WriteString(sourceHeaderStyle.Render("Sources"))
		b.WriteString("\n")
		b.WriteString(renderSources(resp.Sources))
	}

	return b.String()
}

func renderSources(sources []api.Source) string {
	var b strings.Builder
	for i, src := range sources {
		meta := fmt.Sprintf("[%d] %s — %s (%.0f%%)", i+1, src.EpisodeGuest, src.EpisodeTitle, src.Similarity*100)
		b.WriteString("  " + sourceMetaStyle.Render(meta) + "\n")
		b.WriteString("      " + truncate(src.Text, 200) + "\n")
	}
	return b.String()
}

func renderCompare(resp *api.CompareResponse) string {
	var b strings.Builder

	b.WriteString(guideTitleStyle.Render("Topic: "+resp.Topic) + "\n\n")
	for _, p := range []api.GuestPerspective{resp.Guest1, resp.Guest2} {
		b.WriteString(sourceHeaderStyle.Render(p.Name) + "\n")
		b.WriteString(answerStyle.Render(p.Summary) + "\n")
		if len(p.Sources) > 0 {
			b.WriteString(renderSources(p.Sources))
		}
		b.WriteString("\n")
	}
	b.WriteString(answerStyle.Render(resp.Comparison))
	b.WriteString("\n")

	return b.String()
}

func renderGuideList(guides []api.Guide) string {
	var b strings.Builder
	for _, g := range guides {
		b.WriteString(fmt.Sprintf("%3d  %s\n", g.ID, guideTitleStyle.Render(g.Title)))
		b.WriteString(fmt.Sprintf("     %s\n", sourceMetaStyle.Render(
			fmt.Sprintf("%s · %d views · %d actions", g.Guest, g.Views, g.ActionCount))))
		b.WriteString(fmt.Sprintf("     %s\n", truncate(g.TLDR, 160)))
	}
	return b.String()
}

func renderGuideDetail(g *api.GuideDetail) string {
	var b strings.Builder

	b.WriteString(guideTitleStyle.Render(g.Title) + "\n")
	b.WriteString(sourceMetaStyle.Render(
		fmt.Sprintf("%s · %d views", g.Guest, g.Views)) + "\n\n")
	b.WriteString(answerStyle.Render(g.TLDR) + "\n")

	if len(g.ActionItems) > 0 {
		b.WriteString(sourceHeaderStyle.Render("Action items") + "\n")
		for _, item := range g.ActionItems {
			b.WriteString("  • " + item + "\n")
		}
	}
	if len(g.WhenApplies) > 0 {
		b.WriteString(sourceHeaderStyle.Render("When this applies") + "\n")
		for _, item := range g.WhenApplies {
			b.WriteString("  • " + item + "\n")
		}
	}
	if len(g.Frameworks) > 0 {
		b.WriteString(sourceHeaderStyle.Render("Frameworks") + "\n")
		b.WriteString("  " + strings.Join(g.Frameworks, ", ") + "\n")
	}
	if g.ListenIf != "" {
		b.WriteString(sourceHeaderStyle.Render("Listen if") + " " + g.ListenIf + "\n")
	}
	if g.SkipIf != "" {
		b.WriteString(sourceHeaderStyle.Render("Skip if") + " " + g.SkipIf + "\n")
	}

	return b.String()
}

func renderTrending(items []api.TrendingItem) string {
	var b strings.Builder
	for i, item := range items {
		b.WriteString(fmt.Sprintf("%2d. %s %s\n", i+1, item.Query,
			sourceMetaStyle.Render(fmt.Sprintf("(%d)", item.Count))))
	}
	return b.String()
}

func renderTranscript(messages []session.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case session.RoleUser:
			b.WriteString(questionStyle.Render("You: "+msg.Content) + "\n")
		default:
			b.WriteString(answerStyle.Render(msg.Content) + "\n")
		}
	}
	return b.String()
}

// counterLine summarizes remaining quota for display under a prompt.
func counterLine(sess *session.Session) string {
	return counterStyle.Render(fmt.Sprintf(
		"queries left: %d · conversation: %d/%d · new conversations left: %d",
		sess.QueriesRemaining(),
		sess.ConversationLength(), session.MaxConversationLength,
		sess.ConversationsRemaining(),
	))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
