package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/database/repositories"
	"github.com/khatma-app/khatma/khatma/utils"
)

var Release = discord.SlashCommandCreate{
	Name:        "release",
	Description: "↩️ أرجع حزباً حجزته ولم تقرأه",
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

func ReleaseHandler(b *khatma.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.CommandExecutionTimeout)
		defer cancel()

		hizb := e.SlashCommandInteractionData().Int("hizb")

		if err := b.Board.Release(ctx, "", int64(e.User().ID), hizb); err != nil {
			if errors.Is(err, repositories.ErrNotOwned) {
				return utils.EH.CreateErrorEmbed(e, fmt.Sprintf("الحزب %d ليس محجوزاً باسمك", hizb))
			}
			return utils.EH.CreateErrorEmbed(e, "تعذر إرجاع الحزب، حاول مرة أخرى")
		}

		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("أُرجع الحزب **%d** وأصبح متاحاً للجميع", hizb))
	}
}
