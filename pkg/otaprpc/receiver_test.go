// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package otaprpc

import (
	"context"
	"testing"

	colarspb "github.com/f5/otel-arrow-adapter/api/collector/arrow/v1"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

type fakeConsumer struct {
	logs []plog.Logs
	err  error
}

func (f *fakeConsumer) LogsFrom(*colarspb.BatchArrowRecords) ([]plog.Logs, error)       { return f.logs, f.err }
func (f *fakeConsumer) TracesFrom(*colarspb.BatchArrowRecords) ([]ptrace.Traces, error) { return nil, f.err }
func (f *fakeConsumer) MetricsFrom(*colarspb.BatchArrowRecords) ([]pmetric.Metrics, error) {
	return nil, f.err
}
func (f *fakeConsumer) Close() error { return nil }

func TestProcessBatchEmptyPayloadsIsNoop(t *testing.T) {
	r := NewReceiver(Config{}, nil)
	err := r.processBatch(context.Background(), &fakeConsumer{}, &colarspb.BatchArrowRecords{})
	require.NoError(t, err)
}

func TestProcessBatchUnrecognizedPayloadType(t *testing.T) {
	r := NewReceiver(Config{}, nil)
	records := &colarspb.BatchArrowRecords{
		OtlpArrowPayloads: []*colarspb.OtlpArrowPayload{{Type: colarspb.OtlpArrowPayloadType(99)}},
	}
	err := r.processBatch(context.Background(), &fakeConsumer{}, records)
	require.ErrorIs(t, err, errUnrecognizedPayload)
}

func TestProcessBatchLogsDispatchesBeforeStart(t *testing.T) {
	r := NewReceiver(Config{}, nil)
	records := &colarspb.BatchArrowRecords{
		OtlpArrowPayloads: []*colarspb.OtlpArrowPayload{{Type: colarspb.OtlpArrowPayloadType_LOGS}},
	}
	consumer := &fakeConsumer{logs: []plog.Logs{plog.NewLogs()}}
	err := r.processBatch(context.Background(), consumer, records)
	require.ErrorContains(t, err, "not started")
}
