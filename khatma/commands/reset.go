package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/utils"
)

var Reset = discord.SlashCommandCreate{
	Name:        "reset",
	Description: "🗑️ ابدأ ختمة جديدة من الصفر (للمشرفين)",
}

func ResetHandler(b *khatma.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if member := e.Member(); member == nil || !member.Permissions.Has(discord.PermissionAdministrator) {
			return utils.EH.CreateErrorEmbed(e, "هذا الأمر للمشرفين فقط")
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "⚠️ تأكيد",
				Description: "سيمسح هذا الأمر اللوحة والمشاركين ولوحة النوايا ويبدأ ختمة جديدة. هل أنت متأكد؟",
				Color:       utils.WarningColor,
			}},
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewDangerButton("نعم، ابدأ من جديد", fmt.Sprintf("/reset/confirm/%s", e.User().ID)),
					discord.NewSecondaryButton("إلغاء", fmt.Sprintf("/reset/cancel/%s", e.User().ID)),
				),
			},
		})
	}
}

func ResetButtonHandler(b *khatma.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}

		parts := strings.Split(strings.TrimPrefix(data.CustomID(), "/reset/"), "/")
		if len(parts) != 2 {
			return fmt.Errorf("malformed custom id: %s", data.CustomID())
		}
		action, ownerID := parts[0], parts[1]

		if e.User().ID.String() != ownerID {
			return utils.EH.CreateEphemeralError(e, "هذا التأكيد يخص مشرفاً آخر")
		}

		if action == "cancel" {
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds: &[]discord.Embed{{
					Description: "أُلغيت العملية",
					Color:       utils.InfoColor,
				}},
				Components: &[]discord.ContainerComponent{},
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), utils.CommandExecutionTimeout)
		defer cancel()

		if err := b.Board.Reset(ctx, ""); err != nil {
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds: &[]discord.Embed{{
					Description: "تعذر بدء ختمة جديدة، حاول مرة أخرى",
					Color:       utils.ErrorColor,
				}},
				Components: &[]discord.ContainerComponent{},
			})
		}

		return e.UpdateMessage(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Title:       "🌙 ختمة جديدة",
				Description: "مُسحت اللوحة وبدأت ختمة جديدة. بارك الله في الجميع!",
				Color:       utils.SuccessColor,
			}},
			Components: &[]discord.ContainerComponent{},
		})
	}
}
