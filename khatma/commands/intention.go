package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/khatma-app/khatma/khatma/utils"
)

var Intention = discord.SlashCommandCreate{
	Name:        "intention",
	Description: "🤲 لوحة النوايا والدعوات",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "add",
			Description: "أضف نية أو دعاءً للوحة",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "text",
					Description: "نص النية أو الدعاء",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "اعرض لوحة النوايا",
		},
	},
}

func IntentionHandler(b *khatma.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.CommandExecutionTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		switch *data.SubCommandName {
		case "add":
			text := strings.TrimSpace(data.String("text"))
			if text == "" {
				return utils.EH.CreateErrorEmbed(e, "النص فارغ")
			}
			userID := int64(e.User().ID)
			if err := b.Identity.RegisterChatUser(ctx, userID, e.User().EffectiveName(), e.User().Username); err != nil {
				return utils.EH.CreateErrorEmbed(e, "تعذر تسجيلك، حاول مرة أخرى")
			}
			if err := b.Intentions.Add(ctx, models.LegacyKhatmaID, userID, e.User().EffectiveName(), text); err != nil {
				return utils.EH.CreateErrorEmbed(e, "تعذر إضافة النية، حاول مرة أخرى")
			}
			return utils.EH.CreateSuccessEmbed(e, "أُضيفت نيتك إلى اللوحة 🤲")

		case "list":
			intentions, err := b.Intentions.List(ctx, models.LegacyKhatmaID)
			if err != nil {
				return utils.EH.CreateErrorEmbed(e, "تعذر جلب لوحة النوايا")
			}
			if len(intentions) == 0 {
				return utils.EH.CreateInfoEmbed(e, "لوحة النوايا فارغة")
			}

			var sb strings.Builder
			for _, in := range intentions {
				sb.WriteString(fmt.Sprintf("• **%s**: %s\n", in.Name, in.Text))
			}
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{{
					Title:       "🤲 لوحة النوايا",
					Description: sb.String(),
					Color:       utils.InfoColor,
				}},
			})
		}

		return utils.EH.CreateErrorEmbed(e, "أمر غير معروف")
	}
}
