package influxdb

import (
	"errors"
	"testing"

	"github.com/growwiz/growwiz-core/internal/infrastructure/config"
)

func TestWriteOptions(t *testing.T) {
	tests := []struct {
		name      string
		batch     int
		flush     int
		wantBatch uint
		wantFlush uint
	}{
		{"configured", 250, 2, 250, 2000},
		{"zero values use fallbacks", 0, 0, 100, 10000},
		{"negative values use fallbacks", -5, -1, 100, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := writeOptions(config.InfluxDBConfig{BatchSize: tt.batch, FlushInterval: tt.flush})
			if got := opts.BatchSize(); got != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", got, tt.wantBatch)
			}
			if got := opts.FlushInterval(); got != tt.wantFlush {
				t.Errorf("FlushInterval() = %d ms, want %d", got, tt.wantFlush)
			}
		})
	}
}

func TestDrainErrors_CountsAndForwards(t *testing.T) {
	c := &Client{}
	var seen []error
	c.SetOnError(func(err error) { seen = append(seen, err) })

	errs := make(chan error, 2)
	errs <- errors.New("batch rejected")
	errs <- errors.New("timeout")
	close(errs)
	c.drainErrors(errs)

	if got := c.FailedWrites(); got != 2 {
		t.Errorf("FailedWrites() = %d, want 2", got)
	}
	if len(seen) != 2 {
		t.Errorf("callback saw %d errors, want 2", len(seen))
	}
}

func TestFailedWrites_NilClient(t *testing.T) {
	var c *Client
	if got := c.FailedWrites(); got != 0 {
		t.Errorf("FailedWrites() = %d, want 0", got)
	}
}
