package shmem

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/srediag/shmem/internal/logx"
	"github.com/srediag/shmem/internal/mapping"
)

// instruments carries the OTel instruments recorded over a handle's
// lifecycle. A nil *instruments disables recording.
type instruments struct {
	created     metric.Int64Counter
	opened      metric.Int64Counter
	closed      metric.Int64Counter
	mappedBytes metric.Int64UpDownCounter
}

func newInstruments(m metric.Meter) *instruments {
	if m == nil {
		return nil
	}
	var (
		ins instruments
		err error
	)
	if ins.created, err = m.Int64Counter("shmem.segments.created",
		metric.WithDescription("Segments created by this process.")); err != nil {
		logx.Warnf("creating metric instruments failed: %v", err)
		return nil
	}
	if ins.opened, err = m.Int64Counter("shmem.segments.opened",
		metric.WithDescription("Existing segments opened by this process.")); err != nil {
		logx.Warnf("creating metric instruments failed: %v", err)
		return nil
	}
	if ins.closed, err = m.Int64Counter("shmem.segments.closed",
		metric.WithDescription("Segment handles closed by this process.")); err != nil {
		logx.Warnf("creating metric instruments failed: %v", err)
		return nil
	}
	if ins.mappedBytes, err = m.Int64UpDownCounter("shmem.mapped.bytes",
		metric.WithDescription("Bytes currently mapped by this process.")); err != nil {
		logx.Warnf("creating metric instruments failed: %v", err)
		return nil
	}
	return &ins
}

func backingAttr(m *mapping.MapData) metric.MeasurementOption {
	kind := "namespace"
	if m.FileBacked() {
		kind = "file"
	}
	return metric.WithAttributes(attribute.String("shmem.backing", kind))
}

func (i *instruments) onCreate(m *mapping.MapData) {
	if i == nil {
		return
	}
	ctx := context.Background()
	i.created.Add(ctx, 1, backingAttr(m))
	i.mappedBytes.Add(ctx, int64(m.Len()), backingAttr(m))
}

func (i *instruments) onOpen(m *mapping.MapData) {
	if i == nil {
		return
	}
	ctx := context.Background()
	i.opened.Add(ctx, 1, backingAttr(m))
	i.mappedBytes.Add(ctx, int64(m.Len()), backingAttr(m))
}

func (i *instruments) onClose(m *mapping.MapData) {
	if i == nil {
		return
	}
	ctx := context.Background()
	i.closed.Add(ctx, 1, backingAttr(m))
	i.mappedBytes.Add(ctx, -int64(m.Len()), backingAttr(m))
}
