package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"mascarpone/internal/app"
	"mascarpone/internal/bot"
	"mascarpone/internal/config"
)

func main() {
	players := flag.Int("players", 4, "number of bots at the table")
	seed := flag.Int64("seed", 0, "random seed; 0 picks one from the clock")
	level := flag.String("level", "naive", "bot level: naive or random")
	configPath := flag.String("config", "data/game_config.json", "path to the game config")
	identities := flag.String("identities", "data/bot_identities.json", "path to bot names")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if err := config.LoadGameConfig(*configPath); err != nil {
		log.WithError(err).Debug("using default game config")
	}
	rules, err := config.GetGameConfig().Rules()
	if err != nil {
		log.WithError(err).Fatal("invalid game rules")
	}
	if err := bot.LoadIdentities(*identities); err != nil {
		log.WithError(err).Debug("using generated bot names")
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	lvl, err := bot.ParseLevel(*level)
	if err != nil {
		log.WithError(err).Fatal("bad level")
	}

	rng := rand.New(rand.NewSource(*seed))
	agents := make([]*bot.Agent, 0, *players)
	for i := 0; i < *players; i++ {
		brain, err := bot.NewBrain(lvl, rand.New(rand.NewSource(rng.Int63())))
		if err != nil {
			log.WithError(err).Fatal("bad level")
		}
		identity := bot.Identity(i)
		agents = append(agents, &bot.Agent{
			ID:       fmt.Sprintf("bot-%d", i),
			Name:     identity.DisplayName,
			Strategy: brain,
		})
	}

	log.WithFields(logrus.Fields{"players": *players, "seed": *seed, "level": lvl}).Info("starting simulation")
	result, err := bot.Simulate(app.NewService(rng, rules), agents, log.Infof)
	if err != nil {
		log.WithError(err).Error("simulation failed")
		os.Exit(1)
	}

	if result.WinnerID == "" {
		log.WithField("rounds", result.Rounds).Info("nobody survived")
		return
	}
	log.WithFields(logrus.Fields{"winner": result.WinnerName, "rounds": result.Rounds}).Info("game over")
}
