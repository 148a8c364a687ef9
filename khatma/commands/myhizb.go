package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/utils"
)

var MyHizb = discord.SlashCommandCreate{
	Name:        "myhizb",
	Description: "📋 اعرض الأحزاب المحجوزة باسمك",
}

func MyHizbHandler(b *khatma.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.CommandExecutionTimeout)
		defer cancel()

		hizbs, err := b.Board.ParticipantHizbs(ctx, "", int64(e.User().ID))
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "تعذر جلب أحزابك، حاول مرة أخرى")
		}

		if len(hizbs) == 0 {
			return utils.EH.CreateInfoEmbed(e, "لا توجد أحزاب محجوزة باسمك. استخدم `/join` لحجز حزب")
		}

		parts := make([]string, len(hizbs))
		for i, h := range hizbs {
			parts[i] = strconv.Itoa(h)
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "📋 أحزابك",
				Description: fmt.Sprintf("الأحزاب المحجوزة باسمك: **%s**", strings.Join(parts, "، ")),
				Color:       utils.InfoColor,
				Footer: &discord.EmbedFooter{
					Text: e.User().EffectiveName(),
				},
			}},
		})
	}
}
