package commands

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/khatma-app/khatma/khatma/utils"
)

var Status = discord.SlashCommandCreate{
	Name:        "status",
	Description: "📊 اعرض حالة الختمة والمشاركين",
}

func StatusHandler(b *khatma.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.StatsQueryTimeout)
		defer cancel()

		board, err := b.Board.Board(ctx, "")
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "تعذر جلب حالة الختمة")
		}

		k, err := b.Khatmas.Get(ctx, models.LegacyKhatmaID)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "تعذر جلب حالة الختمة")
		}

		participants, err := b.Identity.List(ctx, models.LegacyKhatmaID)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "تعذر جلب قائمة المشاركين")
		}

		available := models.TotalHizbs - board.ActiveCount - board.CompletedCount
		overview := fmt.Sprintf(
			"%s مكتمل: **%d**\n%s قيد القراءة: **%d**\n%s متاح: **%d**\n\n🔁 عدد الختمات المكتملة: **%d**\n⏳ الموعد النهائي: <t:%d:R>",
			utils.SlotCompleted, board.CompletedCount,
			utils.SlotActive, board.ActiveCount,
			utils.SlotAvailable, available,
			k.TotalCycles,
			k.Deadline.Unix(),
		)

		// Page 0 is the overview, the rest page through participants.
		participantPages := int(math.Ceil(float64(len(participants)) / float64(utils.ParticipantsPerPage)))
		totalPages := 1 + participantPages

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				if page == 0 {
					embed.SetTitle("📊 حالة الختمة").
						SetDescription(overview).
						SetColor(utils.InfoColor).
						SetFooterText(fmt.Sprintf("المشاركون: %d", len(participants)))
					return
				}

				startIdx := (page - 1) * utils.ParticipantsPerPage
				endIdx := startIdx + utils.ParticipantsPerPage
				if endIdx > len(participants) {
					endIdx = len(participants)
				}

				var sb strings.Builder
				for i, p := range participants[startIdx:endIdx] {
					sb.WriteString(fmt.Sprintf("**%d.** %s — %s %d · %s %d\n",
						startIdx+i+1, p.FullName,
						utils.SlotActive, p.Active,
						utils.SlotCompleted, p.Completed))
				}

				embed.SetTitle("👥 المشاركون").
					SetDescription(sb.String()).
					SetColor(utils.InfoColor).
					SetFooterText(fmt.Sprintf("صفحة %d من %d", page+1, totalPages))
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}
