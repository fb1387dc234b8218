// Package di exposes typed DI tokens for the bot context.
package di

import (
	"github.com/fd1az/dexarb/business/bot/app"
	"github.com/fd1az/dexarb/internal/di"
)

// Public services exposed to other modules.
var (
	Loop        = di.NewToken[*app.Loop]("bot.Loop")
	HealthState = di.NewToken[*app.HealthState]("bot.HealthState")
	Broadcaster = di.NewToken[*app.Broadcaster]("bot.Broadcaster")
)

// GetLoop resolves the supervising loop.
func GetLoop(c di.ServiceRegistry) *app.Loop {
	return di.GetToken(c, Loop)
}

// GetHealthState resolves the shared bot health state.
func GetHealthState(c di.ServiceRegistry) *app.HealthState {
	return di.GetToken(c, HealthState)
}

// GetBroadcaster resolves the notification broadcaster.
func GetBroadcaster(c di.ServiceRegistry) *app.Broadcaster {
	return di.GetToken(c, Broadcaster)
}
