package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/database/repositories"
	"github.com/khatma-app/khatma/khatma/services"
	"github.com/khatma-app/khatma/khatma/utils"
)

var Join = discord.SlashCommandCreate{
	Name:        "join",
	Description: "📖 احجز حزباً من الختمة الحالية",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "hizb",
			Description: "رقم الحزب (1-60)",
			Required:    true,
			MinValue:    &[]int{1}[0],
			MaxValue:    &[]int{60}[0],
		},
	},
}

func JoinHandler(b *khatma.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.CommandExecutionTimeout)
		defer cancel()

		hizb := e.SlashCommandInteractionData().Int("hizb")
		userID := int64(e.User().ID)

		if err := b.Identity.RegisterChatUser(ctx, userID, e.User().EffectiveName(), e.User().Username); err != nil {
			return utils.EH.CreateErrorEmbed(e, "تعذر تسجيلك، حاول مرة أخرى")
		}

		if err := b.Board.Claim(ctx, "", userID, hizb); err != nil {
			switch {
			case errors.Is(err, repositories.ErrHizbTaken):
				return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("الحزب %d محجوز مسبقاً، اختر حزباً آخر", hizb))
			case errors.Is(err, services.ErrInvalidHizb):
				return utils.EH.CreateErrorEmbed(e, "رقم الحزب يجب أن يكون بين 1 و 60")
			default:
				return utils.EH.CreateErrorEmbed(e, "تعذر حجز الحزب، حاول مرة أخرى")
			}
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "✅ تم الحجز",
				Description: fmt.Sprintf("حُجز لك الحزب **%d**. تقبل الله منك!", hizb),
				Color:       utils.SuccessColor,
				Footer: &discord.EmbedFooter{
					Text: e.User().EffectiveName(),
				},
				Timestamp: &[]time.Time{time.Now()}[0],
			}},
		})
	}
}
