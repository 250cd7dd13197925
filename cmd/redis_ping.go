package cmd

import (
	"context"
	"fmt"
	"time"

	"hn-mirror/internal/redisclient"
	"hn-mirror/internal/storage"

	"github.com/spf13/cobra"
)

// pingCmd checks the configured Redis server and reports the mirror size.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping Redis and print the number of mirrored items",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		res, err := rdb.Ping(ctx).Result()
		if err != nil {
			return err
		}
		n, err := rdb.SCard(ctx, storage.ItemsIndexKey).Result()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d items)\n", res, cfg.Redis.Addr, n)
		return nil
	},
}

func init() {
	redisCmd.AddCommand(pingCmd)
}
