package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"

	"github.com/khatma-app/khatma/khatma/utils"
)

const slowThreshold = 2 * time.Second

// WrapWithLogging times a command handler and enforces the execution
// timeout. The handler runs in its own goroutine so a hung database
// call cannot wedge the gateway worker.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()

		slog.Info("Command started",
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
			slog.String("guild_id", e.GuildID().String()),
			slog.String("channel_id", e.ChannelID().String()),
		)

		done := make(chan error, 1)
		go func() {
			done <- h(e)
		}()

		select {
		case err := <-done:
			logInteractionResult("cmd", name, e.User().ID.String(), e.User().Username, time.Since(start), err)
			return err

		case <-time.After(utils.CommandExecutionTimeout):
			slog.Error("Command timed out",
				slog.String("type", "cmd"),
				slog.String("name", name),
				slog.String("user_id", e.User().ID.String()),
				slog.String("user_name", e.User().Username),
				slog.String("status", "timeout"),
				slog.Duration("timeout", utils.CommandExecutionTimeout),
			)
			return fmt.Errorf("command %s timed out after %s", name, utils.CommandExecutionTimeout)
		}
	}
}

// WrapComponentWithLogging is the button counterpart of WrapWithLogging.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		start := time.Now()

		slog.Info("Component interaction started",
			slog.String("type", "component"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
		)

		done := make(chan error, 1)
		go func() {
			done <- h(e)
		}()

		select {
		case err := <-done:
			logInteractionResult("component", name, e.User().ID.String(), e.User().Username, time.Since(start), err)
			return err

		case <-time.After(utils.CommandExecutionTimeout):
			slog.Error("Component interaction timed out",
				slog.String("type", "component"),
				slog.String("name", name),
				slog.String("user_id", e.User().ID.String()),
				slog.String("user_name", e.User().Username),
				slog.String("status", "timeout"),
				slog.Duration("timeout", utils.CommandExecutionTimeout),
			)
			return fmt.Errorf("component %s timed out after %s", name, utils.CommandExecutionTimeout)
		}
	}
}

func logInteractionResult(kind, name, userID, userName string, took time.Duration, err error) {
	attrs := []any{
		slog.String("type", kind),
		slog.String("name", name),
		slog.String("user_id", userID),
		slog.String("user_name", userName),
		slog.Duration("took", took),
	}

	switch {
	case err != nil:
		slog.Error("Interaction failed", append(attrs,
			slog.Any("error", err),
			slog.String("status", "failed"),
		)...)
	case took > slowThreshold:
		slog.Warn("Interaction executed slowly", append(attrs,
			slog.String("status", "slow"),
		)...)
	default:
		slog.Info("Interaction completed", append(attrs,
			slog.String("status", "success"),
		)...)
	}
}
