package sink

import (
	"context"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/i474232898/pressure-forecast/internal/monitor"
)

const measurement = "pressure"

type pointWriter interface {
	WritePoint(p *write.Point)
	Flush()
}

// Influx exports snapshots as time series points. It never reads them back.
type Influx struct {
	client influxdb2.Client
	writer pointWriter
	logger *slog.Logger
	done   chan struct{}
}

// NewInflux connects a non-blocking write API for org/bucket and logs
// asynchronous write errors until Close.
func NewInflux(url, token, org, bucket string, logger *slog.Logger) *Influx {
	client := influxdb2.NewClient(url, token)
	writeAPI := client.WriteAPI(org, bucket)

	i := &Influx{
		client: client,
		writer: writeAPI,
		logger: logger,
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case err, ok := <-writeAPI.Errors():
				if !ok {
					return
				}
				logger.Warn("influx write failed", "error", err)
			case <-i.done:
				return
			}
		}
	}()
	return i
}

// Write is registered as a monitor.Service record listener.
func (i *Influx) Write(rec monitor.Record) {
	i.writer.WritePoint(pointFor(rec))
}

func pointFor(rec monitor.Record) *write.Point {
	return influxdb2.NewPointWithMeasurement(measurement).
		AddTag("trend", rec.Trend.String()).
		AddTag("source", rec.Source).
		AddField("kpa", rec.PressureKPa).
		AddField("inhg", rec.PressureInHg).
		AddField("samples", rec.Samples).
		SetTime(rec.UpdatedAt)
}

// Ping reports whether the server is reachable.
func (i *Influx) Ping(ctx context.Context) bool {
	ok, err := i.client.Ping(ctx)
	if err != nil {
		i.logger.Warn("influx ping failed", "error", err)
	}
	return ok
}

// Close flushes pending points and releases the client.
func (i *Influx) Close() {
	i.writer.Flush()
	close(i.done)
	if i.client != nil {
		i.client.Close()
	}
}
