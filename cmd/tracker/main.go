package main

import (
	"context"
	"time"

	trackerioc "gitee.com/flycash/labour-tracker/cmd/tracker/ioc"
	"gitee.com/flycash/labour-tracker/internal/ioc"
	"github.com/gotomicro/ego"
	"github.com/gotomicro/ego/core/elog"
	"github.com/gotomicro/ego/server/egovernor"
	"go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

func main() {
	egoApp := ego.New()

	tp := ioc.InitZipkinTracer()
	defer func(tp *trace.TracerProvider) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			elog.Error("Shutdown zipkinTracer", elog.FieldErr(err))
		}
	}(tp)

	app := trackerioc.InitApp()
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.StartTasks(ctx)

	var eg errgroup.Group
	eg.Go(func() error {
		return app.Consumer.Start(ctx)
	})

	if err := egoApp.Serve(
		egovernor.Load("server.governor").Build(),
		app.Web,
	).Run(); err != nil {
		elog.Error("startup", elog.FieldErr(err))
	}

	cancel()
	app.Consumer.Stop()
	if err := eg.Wait(); err != nil {
		elog.Error("event consumer exited", elog.FieldErr(err))
	}
}
