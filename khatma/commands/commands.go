package commands

import (
	"github.com/disgoorg/disgo/discord"
)

var Commands = []discord.ApplicationCommandCreate{
	Join,
	Release,
	Done,
	Undo,
	MyHizb,
	Status,
	Intention,
	Deadline,
	Reset,
}
