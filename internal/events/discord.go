package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/godilite/service-audit/internal/scoring"
)

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordPublisher posts alerts as embeds to a single channel.
type DiscordPublisher struct {
	sender    embedSender
	session   *discordgo.Session
	channelID string
}

func NewDiscordPublisher(botToken, channelID string) (*DiscordPublisher, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordPublisher{sender: session, session: session, channelID: channelID}, nil
}

func (p *DiscordPublisher) Publish(ctx context.Context, event AlertEvent) error {
	_, err := p.sender.ChannelMessageSendEmbed(p.channelID, alertEmbed(event), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord publish audit %d: %w", event.AuditID, err)
	}
	return nil
}

func (p *DiscordPublisher) Close() error {
	if p.session != nil {
		return p.session.Close()
	}
	return nil
}

func alertEmbed(event AlertEvent) *discordgo.MessageEmbed {
	class := scoring.Classification(event.Classification)

	color := 0xF39C12
	if class == scoring.Unsatisfactory {
		color = 0xE74C3C
	}

	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Auditoria #%d requer ação", event.AuditID),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Analista", Value: event.AnalystName, Inline: true},
			{Name: "Conversa", Value: event.ConversationID, Inline: true},
			{Name: "Nota", Value: scoring.FormatGrade(event.Grade), Inline: true},
			{Name: "Percentual", Value: strconv.Itoa(event.Percent) + "%", Inline: true},
			{Name: "Mínimo", Value: strconv.FormatFloat(event.MinimumAcceptablePercent, 'f', 2, 64) + "%", Inline: true},
			{Name: "Classificação", Value: class.Display(), Inline: true},
		},
		Timestamp: event.OccurredAt.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Auditoria de atendimentos",
		},
	}
}
