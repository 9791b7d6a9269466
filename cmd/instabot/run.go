package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"

	"github.com/codehamsters/instabot/bot"
	"github.com/codehamsters/instabot/internal/igclient"
	"github.com/codehamsters/instabot/internal/logutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll group threads and dispatch admin commands until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}

			session, err := igclient.LoadSession(viper.GetString("session_file"))
			if err != nil {
				return err
			}
			client := igclient.New(nil, viper.GetString("api_base_url"), session)

			store, recovered, err := bot.OpenFileStore(viper.GetString("state_file"))
			if err != nil {
				return err
			}
			if recovered {
				logger.Warn("state_file_corrupted", "path", viper.GetString("state_file"))
			}

			owner := strings.TrimSpace(viper.GetString("owner_username"))
			reconciler := bot.NewReconciler(store)
			differ := bot.NewDiffer(bot.DifferOptions{
				Client:        client,
				Store:         store,
				Logger:        logger,
				OwnerUsername: owner,
			})
			dispatcher := bot.NewDispatcher(bot.DispatcherOptions{
				Client:        client,
				Store:         store,
				Reconciler:    reconciler,
				Logger:        logger,
				OwnerUsername: owner,
			})
			poller := bot.NewPoller(bot.PollerOptions{
				Client:     client,
				Store:      store,
				Reconciler: reconciler,
				Differ:     differ,
				Dispatcher: dispatcher,
				Logger:     logger,
				PollMin:    viper.GetDuration("poll.min_interval"),
				PollMax:    viper.GetDuration("poll.max_interval"),
				BackoffMin: viper.GetDuration("poll.backoff_min"),
				BackoffMax: viper.GetDuration("poll.backoff_max"),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("bot_started", "self_id", client.SelfID())
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("bot_stopped")
			return nil
		},
	}

	cmd.Flags().String("session-file", "session.json", "Path to the exported platform session file.")
	cmd.Flags().String("state-file", "bot_data.json", "Path to the bot state snapshot.")
	cmd.Flags().String("owner-username", "", "Fallback contact named in error notices.")
	_ = viper.BindPFlag("session_file", cmd.Flags().Lookup("session-file"))
	_ = viper.BindPFlag("state_file", cmd.Flags().Lookup("state-file"))
	_ = viper.BindPFlag("owner_username", cmd.Flags().Lookup("owner-username"))

	return cmd
}
