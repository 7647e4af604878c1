package main

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"
)

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append(keysAndValues, "error", err)...)
}

// runScheduled 按 cron 表达式执行 job，直到 ctx 结束；上一次未完成时跳过
func runScheduled(ctx context.Context, spec string, job func()) error {
	c := cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	if _, err := c.AddFunc(spec, job); err != nil {
		return goerr.Wrap(err, "invalid schedule", goerr.V("schedule", spec))
	}

	slog.Info("scheduled", "schedule", spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
