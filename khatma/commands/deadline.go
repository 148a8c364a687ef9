package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/khatma-app/khatma/khatma/utils"
)

var Deadline = discord.SlashCommandCreate{
	Name:        "deadline",
	Description: "⏳ حدّد الموعد النهائي للختمة (للمشرفين)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "days",
			Description: "عدد الأيام من الآن",
			Required:    true,
			MinValue:    &[]int{1}[0],
			MaxValue:    &[]int{90}[0],
		},
	},
}

func DeadlineHandler(b *khatma.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if member := e.Member(); member == nil || !member.Permissions.Has(discord.PermissionAdministrator) {
			return utils.EH.CreateErrorEmbed(e, "هذا الأمر للمشرفين فقط")
		}

		ctx, cancel := context.WithTimeout(context.Background(), utils.CommandExecutionTimeout)
		defer cancel()

		days := e.SlashCommandInteractionData().Int("days")
		deadline := time.Now().AddDate(0, 0, days)

		if err := b.Khatmas.SetDeadline(ctx, models.LegacyKhatmaID, deadline); err != nil {
			return utils.EH.CreateErrorEmbed(e, "تعذر تحديث الموعد النهائي")
		}

		return utils.EH.CreateSuccessEmbed(e,
			fmt.Sprintf("حُدد الموعد النهائي: <t:%d:F>", deadline.Unix()))
	}
}
