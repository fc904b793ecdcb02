// Command ipcdemo runs a minimal conductor duty cycle over a single IPC
// publication: create it, attach a tethered subscriber, and drive
// onTimeEvent/updatePubLmt until the publication is decref'd and reaches
// end of life.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/flowlog/ipc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ipcdemo:", err)
		os.Exit(1)
	}
}

func run() error {
	dir, err := os.MkdirTemp("", "ipcdemo-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	if err := os.MkdirAll(dir+"/publications", 0755); err != nil {
		return fmt.Errorf("create publications dir: %w", err)
	}

	ctx := ipc.DefaultContext(dir)
	ctx.Logger = ipc.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	id := ipc.Identity{SessionID: 1, StreamID: 10, RegistrationID: 1001}
	params := ipc.Params{
		TermLength: ipc.MinTermLength,
		MTULength:  1408,
		PageSize:   ipc.DefaultPageSize,
	}

	pub, err := ipc.Create(ctx, id, 0, params, false)
	if err != nil {
		return fmt.Errorf("create publication: %w", err)
	}

	sp, err := pub.AttachSubscriber(2001, true, "demo-subscriber")
	if err != nil {
		return fmt.Errorf("attach subscriber: %w", err)
	}

	conductor := ipc.NoOpConductor{}
	now := time.Now().UnixNano()

	workCount := pub.UpdatePubLmt()
	ctx.Logger.Info("updated publication limit", "workCount", workCount)

	pub.OnTimeEvent(conductor, now)
	ctx.Logger.Info("publication state", "state", pub.State().String(), "numSubscribers", pub.NumSubscribers())

	sp.Pos.SetOrdered(pub.ProducerPosition())
	pub.Decref()
	pub.OnTimeEvent(conductor, now+int64(time.Second))
	pub.OnTimeEvent(conductor, now+2*int64(time.Second))

	if err := ipc.Close(ctx.CountersManager, ctx.Mapper, pub); err != nil {
		return fmt.Errorf("close publication: %w", err)
	}
	ctx.Logger.Info("publication closed", "hasReachedEndOfLife", pub.HasReachedEndOfLife())
	return nil
}
