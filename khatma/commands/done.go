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
	"github.com/khatma-app/khatma/khatma/utils"
)

var Done = discord.SlashCommandCreate{
	Name:        "done",
	Description: "🎉 سجّل إتمام قراءة حزبك",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "hizb",
			Description: "رقم الحزب، اتركه فارغاً لإتمام كل أحزابك",
			Required:    false,
			MinValue:    &[]int{1}[0],
			MaxValue:    &[]int{60}[0],
		},
	},
}

func DoneHandler(b *khatma.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.CommandExecutionTimeout)
		defer cancel()

		userID := int64(e.User().ID)

		hizb, ok := e.SlashCommandInteractionData().OptInt("hizb")
		if !ok {
			result, err := b.Board.CompleteAll(ctx, "", userID)
			if err != nil {
				return utils.EH.CreateErrorEmbed(e, "تعذر تسجيل الإتمام، حاول مرة أخرى")
			}
			if len(result.Hizbs) == 0 {
				return utils.EH.CreateErrorEmbed(e, "لا توجد أحزاب محجوزة باسمك")
			}
			return respondDone(e, result.Hizbs, result.CycleFinished)
		}

		result, err := b.Board.Complete(ctx, "", userID, hizb)
		if err != nil {
			if errors.Is(err, repositories.ErrNotAssigned) {
				return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("الحزب %d ليس محجوزاً باسمك", hizb))
			}
			return utils.EH.CreateErrorEmbed(e, "تعذر تسجيل الإتمام، حاول مرة أخرى")
		}
		return respondDone(e, result.Hizbs, result.CycleFinished)
	}
}

func respondDone(e *handler.CommandEvent, hizbs []int, cycleFinished bool) error {
	if cycleFinished {
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "🌙 اكتملت الختمة!",
				Description: "اكتملت الستون حزباً وبدأت ختمة جديدة. تقبل الله من الجميع!",
				Color:       utils.SuccessColor,
				Timestamp:   &[]time.Time{time.Now()}[0],
			}},
		})
	}

	var desc string
	if len(hizbs) == 1 {
		desc = fmt.Sprintf("سُجل إتمام الحزب **%d**. تقبل الله منك!", hizbs[0])
	} else {
		desc = fmt.Sprintf("سُجل إتمام **%d** أحزاب. تقبل الله منك!", len(hizbs))
	}
	return utils.EH.CreateSuccessEmbed(e, desc)
}
