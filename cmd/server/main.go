package main

import (
	"encoding/json"
	"log"
	"time"

	httpapi "callbreak/internal/api/http"
	"callbreak/internal/api/ws"
	"callbreak/internal/callbreak"
	"callbreak/internal/config"
	"callbreak/internal/room"
	"callbreak/internal/store"
)

func main() {
	cfg := config.Load()

	gameOpts := callbreak.Options{
		TotalRounds: cfg.Game.TotalRounds,
		TurnTimeout: time.Duration(cfg.Game.TurnTimeoutSec) * time.Second,
		TrickDelay:  time.Duration(cfg.Game.TrickDelayMs) * time.Millisecond,
		RoundDelay:  time.Duration(cfg.Game.RoundDelayMs) * time.Millisecond,
	}
	botOpts := callbreak.BotOptions{
		MinDelay: time.Duration(cfg.Bots.MinDelayMs) * time.Millisecond,
		MaxDelay: time.Duration(cfg.Bots.MaxDelayMs) * time.Millisecond,
	}

	hub := ws.NewHub()
	rooms := room.NewManager(room.Deps{
		Messenger: hub,
		Store:     store.NewMemoryStore(),
		NewGame: func(players []*room.Player, host room.Host) room.Game {
			return callbreak.New(players, host, gameOpts)
		},
		RestoreGame: func(data json.RawMessage, players []*room.Player, host room.Host) (room.Game, error) {
			return callbreak.Restore(data, players, host, gameOpts)
		},
		NewBot: func(profile *room.Player, act func(room.ClientMessage)) room.Bot {
			return callbreak.NewBot(profile, act, botOpts)
		},
		BotFill: cfg.Bots.FillEnabled,
	})
	hub.BindRooms(rooms)

	r := httpapi.NewRouter(rooms, hub)

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
