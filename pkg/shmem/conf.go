package shmem

import (
	"context"
	"errors"
	"os"
	"runtime"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/shmem/internal/logx"
	"github.com/srediag/shmem/internal/mapping"
)

// Conf configures a segment before it is created or opened. Setters chain;
// the zero value of every option means "namespace-backed, random identifier,
// no reference file, exclusive create". A Conf is copied into the handle it
// produces and must not be mutated afterwards.
type Conf struct {
	osID           string
	size           int
	flinkPath      string
	overwriteFlink bool
	fsBacked       bool
	fsBaseDir      string
	mode           os.FileMode
	meter          metric.Meter
	tracer         trace.Tracer
}

// NewConf returns a Conf with the default permission mode 0600.
func NewConf() *Conf {
	return &Conf{mode: 0o600}
}

// OSID sets an explicit identifier for the region. When not set, a random
// identifier is generated on Create.
func (c *Conf) OSID(id string) *Conf {
	c.osID = id
	return c
}

// Size sets the mapping size in bytes used by Create.
func (c *Conf) Size(size int) *Conf {
	c.size = size
	return c
}

// Flink makes Create write a reference file at path containing the region's
// identifier, and makes Open resolve the identifier from that file.
func (c *Conf) Flink(path string) *Conf {
	c.flinkPath = path
	return c
}

// ForceCreateFlink lets Create overwrite an existing reference file instead
// of failing with ErrLinkExists.
func (c *Conf) ForceCreateFlink() *Conf {
	c.overwriteFlink = true
	return c
}

// Mode sets the permission bits of the backing store created by Create.
func (c *Conf) Mode(mode os.FileMode) *Conf {
	c.mode = mode
	return c
}

// FsBackedDir enables filesystem-backed mode: the backing store is an
// ordinary file under baseDir instead of a kernel namespace entry.
func (c *Conf) FsBackedDir(baseDir string) *Conf {
	c.fsBacked = true
	c.fsBaseDir = baseDir
	return c
}

// WithMeter attaches an OpenTelemetry meter; segment lifecycle counters and
// the mapped-bytes gauge are recorded against it.
func (c *Conf) WithMeter(m metric.Meter) *Conf {
	c.meter = m
	return c
}

// WithTracer attaches an OpenTelemetry tracer; Create and Open run inside a
// span when set.
func (c *Conf) WithTracer(t trace.Tracer) *Conf {
	c.tracer = t
	return c
}

// Create creates a new segment from the configuration and returns the
// owning handle with the region mapped read/write.
func (c *Conf) Create() (*Shmem, error) {
	if c.tracer != nil {
		_, span := c.tracer.Start(context.Background(), "shmem.Create")
		defer span.End()
	}

	if c.size <= 0 {
		return nil, ErrMapSizeZero
	}
	if c.flinkPath != "" && !c.overwriteFlink && pathExists(c.flinkPath) {
		return nil, ErrLinkExists
	}
	if c.fsBacked && c.fsBaseDir == "" {
		return nil, ErrNoFsBaseDir
	}

	m, err := c.createMapping()
	if err != nil {
		return nil, err
	}

	if c.flinkPath != "" {
		if err := createFlink(c.flinkPath, m.ID(), c.overwriteFlink); err != nil {
			// The region was created but cannot be advertised; tear it
			// down again before surfacing the error.
			m.Release()
			return nil, err
		}
	}

	return c.newHandle(m, true), nil
}

// createMapping resolves the identifier and drives the driver's create. An
// explicit identifier is attempted exactly once; otherwise random
// identifiers are generated until one is free, retrying solely on
// ErrMappingIDExists.
func (c *Conf) createMapping() (*mapping.MapData, error) {
	if c.osID != "" {
		if c.fsBacked {
			return mapping.CreateFile(mapping.FilePath(c.fsBaseDir, c.osID), c.size, c.mode)
		}
		return mapping.Create(c.osID, c.size, c.mode)
	}
	for {
		var (
			m   *mapping.MapData
			err error
		)
		if c.fsBacked {
			m, err = mapping.CreateFile(mapping.FilePath(c.fsBaseDir, mapping.RandomToken()), c.size, c.mode)
		} else {
			m, err = mapping.Create(mapping.RandomID(), c.size, c.mode)
		}
		if errors.Is(err, ErrMappingIDExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Open opens an existing segment. The handle is a non-owner: closing it
// unmaps but leaves the region and any reference file in place.
func (c *Conf) Open() (*Shmem, error) {
	return c.OpenContext(context.Background())
}

// OpenContext is Open honoring ctx during the reference-file retry window.
func (c *Conf) OpenContext(ctx context.Context) (*Shmem, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "shmem.Open")
		defer span.End()
	}

	if c.osID == "" && c.flinkPath == "" {
		logx.Debugf("open called with no reference file or identifier")
		return nil, ErrNoLinkOrOSID
	}
	if c.fsBacked && c.osID != "" && c.fsBaseDir == "" {
		return nil, ErrNoFsBaseDir
	}

	var m *mapping.MapData
	if c.osID != "" {
		// A caller who names the segment directly is assumed not to be
		// racing a writer, so no retry.
		var err error
		if c.fsBacked {
			m, err = mapping.OpenFile(mapping.FilePath(c.fsBaseDir, c.osID))
		} else {
			m, err = mapping.Open(c.osID)
		}
		if err != nil {
			return nil, err
		}
	} else {
		op := func() error {
			// Re-read the flink on every attempt: the creator may not
			// have finished writing the full identifier yet.
			id, err := readFlink(c.flinkPath)
			if err != nil {
				return backoff.Permanent(err)
			}
			var oerr error
			if c.fsBacked {
				m, oerr = mapping.OpenFile(id)
			} else {
				m, oerr = mapping.Open(id)
			}
			if oerr == nil {
				return nil
			}
			if errors.Is(oerr, ErrMapOpenFailed) {
				return oerr
			}
			return backoff.Permanent(oerr)
		}
		b := backoff.WithMaxRetries(backoff.NewConstantBackOff(flinkRetryDelay), flinkRetryAttempts)
		if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
			return nil, err
		}
	}

	return c.newHandle(m, false), nil
}

func (c *Conf) newHandle(m *mapping.MapData, created bool) *Shmem {
	s := &Shmem{
		conf: *c,
		m:    m,
		inst: newInstruments(c.meter),
	}
	s.conf.size = m.Len()
	registerSegment(m.ID())
	if created {
		s.inst.onCreate(m)
	} else {
		s.inst.onOpen(m)
	}
	// Backstop for handles dropped without Close; release still happens
	// at most once.
	runtime.SetFinalizer(s, (*Shmem).Close)
	return s
}
