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

var Undo = discord.SlashCommandCreate{
	Name:        "undo",
	Description: "🔄 تراجع عن إتمام سجلته بالخطأ",
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

func UndoHandler(b *khatma.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.CommandExecutionTimeout)
		defer cancel()

		hizb := e.SlashCommandInteractionData().Int("hizb")

		if err := b.Board.Undo(ctx, "", int64(e.User().ID), hizb); err != nil {
			if errors.Is(err, repositories.ErrCompletionNotFound) {
				return utils.EH.CreateErrorEmbed(e,
					fmt.Sprintf("لا يوجد إتمام مسجل باسمك للحزب %d في الختمة الحالية", hizb))
			}
			return utils.EH.CreateErrorEmbed(e, "تعذر التراجع، حاول مرة أخرى")
		}

		return utils.EH.CreateSuccessEmbed(e,
			fmt.Sprintf("أُلغي إتمام الحزب **%d** وعاد محجوزاً باسمك", hizb))
	}
}
