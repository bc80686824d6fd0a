// Package historian copies the live action stream from Redis into Postgres.
package historian

import (
	"context"

	"github.com/jason-s-yu/dog/service/internal/cache"
	"github.com/jason-s-yu/dog/service/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink stores one action record.
type Sink func(ctx context.Context, rec cache.GameActionRecord) error

// Run subscribes to the action channel and writes every record to the
// database until ctx is cancelled.
func Run(ctx context.Context, rdb *redis.Client) error {
	sub := rdb.Subscribe(ctx, cache.ActionsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	logrus.WithField("channel", cache.ActionsChannel).Info("historian subscribed")
	return Drain(ctx, sub.Channel(), database.InsertGameAction)
}

// Drain hands every message of msgs to sink until ctx is done or msgs is
// closed. Undecodable messages and sink failures are logged and skipped.
func Drain(ctx context.Context, msgs <-chan *redis.Message, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			rec, err := cache.DecodeActionRecord(msg.Payload)
			if err != nil {
				logrus.WithError(err).Warn("historian: dropping undecodable record")
				continue
			}
			if err := sink(ctx, rec); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"game":  rec.GameID,
					"index": rec.ActionIndex,
				}).Error("historian: storing action")
			}
		}
	}
}
